package main

import (
	"context"
	"fmt"
	"log"
	"os"

	"github.com/urfave/cli/v3"
	"go.uber.org/zap"

	"tesla_parts_api/internal/config"
	"tesla_parts_api/internal/model"
	"tesla_parts_api/pkg/database"
	"tesla_parts_api/pkg/logger"
)

func main() {
	cmd := &cli.Command{
		Name:  "tesla-parts-api",
		Usage: "Tesla parts shop backend",
		// 不带子命令时直接启动服务
		Action: runServe,
		Commands: []*cli.Command{
			{
				Name:   "serve",
				Usage:  "Start the HTTP server and background tasks",
				Action: runServe,
			},
			{
				Name:   "migrate",
				Usage:  "Run database migration",
				Action: runMigrate,
			},
			{
				Name:   "seed",
				Usage:  "Seed default categories, pages and SEO entries",
				Action: runSeed,
			},
			{
				Name:  "create-admin",
				Usage: "Create an admin user",
				Flags: []cli.Flag{
					&cli.StringFlag{Name: "username", Value: "admin", Usage: "admin username"},
					&cli.StringFlag{Name: "password", Required: true, Usage: "admin password (min 6 chars)"},
				},
				Action: runCreateAdmin,
			},
		},
	}

	if err := cmd.Run(context.Background(), os.Args); err != nil {
		log.Fatal(err)
	}
}

// ==================== 子命令 ====================

func runServe(ctx context.Context, _ *cli.Command) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Serve(ctx)
}

func runMigrate(_ context.Context, _ *cli.Command) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()
	app.Log.Info("migration complete")
	return nil
}

func runSeed(ctx context.Context, _ *cli.Command) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()
	return app.Seed(ctx)
}

func runCreateAdmin(ctx context.Context, c *cli.Command) error {
	app, err := bootstrap()
	if err != nil {
		return err
	}
	defer app.Close()

	user, err := app.Services.User.CreateAdmin(ctx, c.String("username"), c.String("password"))
	if err != nil {
		return err
	}
	app.Log.Info("admin created", zap.Int64("id", user.ID), zap.String("username", user.Username))
	return nil
}

// ==================== 启动 ====================

// bootstrap 读取配置、连接数据库并自动建表，然后组装依赖
func bootstrap() (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}

	zl, err := logger.New(cfg.Log.Level, cfg.Log.Encoding)
	if err != nil {
		return nil, fmt.Errorf("init logger: %w", err)
	}

	db, err := database.Open(database.Options{
		Driver: cfg.Database.Driver,
		DSN:    cfg.Database.DSN,
		Debug:  cfg.Database.Debug,
	})
	if err != nil {
		return nil, err
	}
	if err := database.Migrate(db, model.AllModels()...); err != nil {
		return nil, err
	}

	return NewApp(cfg, db, zl)
}
