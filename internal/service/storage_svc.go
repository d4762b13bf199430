package service

import (
	"bytes"
	"context"
	"crypto/sha1"
	"encoding/hex"
	"fmt"
	"net/http"
	"os"
	"path"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/go-resty/resty/v2"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"tesla_parts_api/internal/api/dto"
)

// 上传目录
const (
	FolderCategories    = "categories"
	FolderSubcategories = "subcategories"
	FolderProducts      = "products"
)

// ==================== 接口定义 ====================

// StorageProvider 存储提供者接口
type StorageProvider interface {
	// Upload 上传文件到 folder，返回公开访问URL
	Upload(ctx context.Context, data []byte, folder, filename, contentType string) (url string, err error)

	// Delete 删除文件，不属于本存储的 URL 忽略
	Delete(ctx context.Context, url string) error
}

// ImageStore 业务层依赖的图片存储
type ImageStore interface {
	UploadImage(ctx context.Context, file *dto.UploadFile, folder string) (string, error)
	DeleteImage(ctx context.Context, url string)
}

// ==================== 配置 ====================

type StorageConfig struct {
	Provider   string // "local" | "s3" | "cloudinary"
	BasePath   string // 目录前缀，如 tesla-parts
	BackendURL string // 本地存储对外地址
	LocalDir   string // 本地静态目录

	Bucket    string
	Region    string
	AccessKey string
	SecretKey string
	CDNDomain string

	CloudName string
	APIKey    string
	APISecret string
}

// ==================== 工厂方法 ====================

func NewStorageProvider(cfg StorageConfig) (StorageProvider, error) {
	switch cfg.Provider {
	case "s3":
		return NewS3Storage(cfg)
	case "cloudinary":
		return NewCloudinaryStorage(cfg, nil)
	case "local", "":
		return NewLocalStorage(cfg)
	default:
		return nil, fmt.Errorf("unsupported storage provider: %s", cfg.Provider)
	}
}

// ==================== StorageService ====================

// StorageService 图片存储服务，失败只记日志，由调用方决定是否跳过
type StorageService struct {
	provider StorageProvider
	config   StorageConfig
	log      *zap.Logger
}

// NewStorageService 创建存储服务
func NewStorageService(cfg StorageConfig, log *zap.Logger) (*StorageService, error) {
	provider, err := NewStorageProvider(cfg)
	if err != nil {
		return nil, err
	}
	return NewStorageServiceWithProvider(provider, cfg, log), nil
}

// NewStorageServiceWithProvider 使用指定 Provider
func NewStorageServiceWithProvider(provider StorageProvider, cfg StorageConfig, log *zap.Logger) *StorageService {
	return &StorageService{provider: provider, config: cfg, log: log}
}

// UploadImage 上传图片，folder 自动加上 BasePath 前缀
func (s *StorageService) UploadImage(ctx context.Context, file *dto.UploadFile, folder string) (string, error) {
	if !file.HasContent() {
		return "", fmt.Errorf("empty upload")
	}
	contentType := file.ContentType
	if contentType == "" {
		contentType = http.DetectContentType(file.Data)
	}
	url, err := s.provider.Upload(ctx, file.Data, s.folder(folder), file.Filename, contentType)
	if err != nil {
		s.log.Warn("image upload failed",
			zap.String("filename", file.Filename),
			zap.String("folder", folder),
			zap.Error(err))
		return "", err
	}
	return url, nil
}

// DeleteImage 尽力删除，失败只记日志
func (s *StorageService) DeleteImage(ctx context.Context, url string) {
	if url == "" {
		return
	}
	if err := s.provider.Delete(ctx, url); err != nil {
		s.log.Warn("image delete failed", zap.String("url", url), zap.Error(err))
	}
}

// GetProvider 获取底层 Provider
func (s *StorageService) GetProvider() StorageProvider {
	return s.provider
}

func (s *StorageService) folder(folder string) string {
	if s.config.BasePath == "" {
		return folder
	}
	return path.Join(s.config.BasePath, folder)
}

// ==================== 本地存储 ====================

// LocalStorage 写入 {LocalDir}/images/{folder}/{uuid}{ext}
// 对外地址为 {BackendURL}/static/images/{folder}/{uuid}{ext}
type LocalStorage struct {
	dir     string
	baseURL string
}

func NewLocalStorage(cfg StorageConfig) (*LocalStorage, error) {
	dir := cfg.LocalDir
	if dir == "" {
		dir = "static"
	}
	baseURL := strings.TrimRight(cfg.BackendURL, "/")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}
	return &LocalStorage{dir: dir, baseURL: baseURL}, nil
}

func (s *LocalStorage) Upload(_ context.Context, data []byte, folder, filename, _ string) (string, error) {
	rel := path.Join("images", folder, uuid.New().String()+fileExt(filename))
	full := filepath.Join(s.dir, filepath.FromSlash(rel))
	if err := os.MkdirAll(filepath.Dir(full), 0o755); err != nil {
		return "", fmt.Errorf("create upload dir: %w", err)
	}
	if err := os.WriteFile(full, data, 0o644); err != nil {
		return "", fmt.Errorf("write upload: %w", err)
	}
	return s.baseURL + "/static/" + rel, nil
}

func (s *LocalStorage) Delete(_ context.Context, url string) error {
	prefix := s.baseURL + "/static/"
	if !strings.HasPrefix(url, prefix) {
		return nil
	}
	rel := strings.TrimPrefix(url, prefix)
	if strings.Contains(rel, "..") {
		return fmt.Errorf("invalid path: %s", rel)
	}
	err := os.Remove(filepath.Join(s.dir, filepath.FromSlash(rel)))
	if os.IsNotExist(err) {
		return nil
	}
	return err
}

// ==================== S3 实现 ====================

type S3Storage struct {
	client    *s3.Client
	bucket    string
	region    string
	cdnDomain string
}

func NewS3Storage(cfg StorageConfig) (*S3Storage, error) {
	awsCfg, err := config.LoadDefaultConfig(context.Background(),
		config.WithRegion(cfg.Region),
		config.WithCredentialsProvider(credentials.NewStaticCredentialsProvider(
			cfg.AccessKey,
			cfg.SecretKey,
			"",
		)),
	)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &S3Storage{
		client:    s3.NewFromConfig(awsCfg),
		bucket:    cfg.Bucket,
		region:    cfg.Region,
		cdnDomain: cfg.CDNDomain,
	}, nil
}

func (s *S3Storage) Upload(ctx context.Context, data []byte, folder, filename, contentType string) (string, error) {
	key := generateKey(folder, filename)

	_, err := s.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(key),
		Body:        bytes.NewReader(data),
		ContentType: aws.String(contentType),
	})
	if err != nil {
		return "", fmt.Errorf("s3 put object: %w", err)
	}

	return s.publicURL(key), nil
}

func (s *S3Storage) Delete(ctx context.Context, url string) error {
	key := s.extractKey(url)
	if key == "" {
		return nil
	}
	_, err := s.client.DeleteObject(ctx, &s3.DeleteObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(key),
	})
	return err
}

func (s *S3Storage) publicURL(key string) string {
	if s.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", s.cdnDomain, key)
	}
	return fmt.Sprintf("https://%s.s3.%s.amazonaws.com/%s", s.bucket, s.region, key)
}

func (s *S3Storage) extractKey(url string) string {
	for _, prefix := range []string{
		fmt.Sprintf("https://%s/", s.cdnDomain),
		fmt.Sprintf("https://%s.s3.%s.amazonaws.com/", s.bucket, s.region),
	} {
		if strings.HasPrefix(url, prefix) && prefix != "https:///" {
			return strings.TrimPrefix(url, prefix)
		}
	}
	return ""
}

// ==================== Cloudinary 实现 ====================

// CloudinaryStorage 通过签名上传接口写入图床
type CloudinaryStorage struct {
	client    *resty.Client
	cloudName string
	apiKey    string
	apiSecret string
}

// NewCloudinaryStorage client 为空时使用默认客户端
func NewCloudinaryStorage(cfg StorageConfig, client *resty.Client) (*CloudinaryStorage, error) {
	if cfg.CloudName == "" || cfg.APIKey == "" || cfg.APISecret == "" {
		return nil, fmt.Errorf("cloudinary credentials are incomplete")
	}
	if client == nil {
		client = resty.New().
			SetBaseURL("https://api.cloudinary.com").
			SetTimeout(30 * time.Second)
	}
	return &CloudinaryStorage{
		client:    client,
		cloudName: cfg.CloudName,
		apiKey:    cfg.APIKey,
		apiSecret: cfg.APISecret,
	}, nil
}

type cloudinaryUploadResp struct {
	SecureURL string `json:"secure_url"`
	URL       string `json:"url"`
	PublicID  string `json:"public_id"`
	Error     *struct {
		Message string `json:"message"`
	} `json:"error"`
}

func (s *CloudinaryStorage) Upload(ctx context.Context, data []byte, folder, filename, _ string) (string, error) {
	timestamp := strconv.FormatInt(time.Now().Unix(), 10)
	params := map[string]string{
		"folder":    folder,
		"timestamp": timestamp,
	}

	var result cloudinaryUploadResp
	resp, err := s.client.R().
		SetContext(ctx).
		SetFileReader("file", filename, bytes.NewReader(data)).
		SetFormData(params).
		SetFormData(map[string]string{
			"api_key":   s.apiKey,
			"signature": s.sign(params),
		}).
		SetResult(&result).
		SetError(&result).
		Post(fmt.Sprintf("/v1_1/%s/image/upload", s.cloudName))
	if err != nil {
		return "", fmt.Errorf("cloudinary upload: %w", err)
	}
	if resp.IsError() {
		msg := resp.Status()
		if result.Error != nil {
			msg = result.Error.Message
		}
		return "", fmt.Errorf("cloudinary upload: %s", msg)
	}
	if result.SecureURL != "" {
		return result.SecureURL, nil
	}
	return result.URL, nil
}

func (s *CloudinaryStorage) Delete(ctx context.Context, url string) error {
	publicID := s.publicID(url)
	if publicID == "" {
		return nil
	}
	params := map[string]string{
		"public_id": publicID,
		"timestamp": strconv.FormatInt(time.Now().Unix(), 10),
	}
	resp, err := s.client.R().
		SetContext(ctx).
		SetFormData(params).
		SetFormData(map[string]string{
			"api_key":   s.apiKey,
			"signature": s.sign(params),
		}).
		Post(fmt.Sprintf("/v1_1/%s/image/destroy", s.cloudName))
	if err != nil {
		return fmt.Errorf("cloudinary destroy: %w", err)
	}
	if resp.IsError() {
		return fmt.Errorf("cloudinary destroy: %s", resp.Status())
	}
	return nil
}

// sign 参数按键排序拼接后追加 secret 取 sha1
func (s *CloudinaryStorage) sign(params map[string]string) string {
	keys := make([]string, 0, len(params))
	for k, v := range params {
		if v != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	parts := make([]string, 0, len(keys))
	for _, k := range keys {
		parts = append(parts, k+"="+params[k])
	}
	sum := sha1.Sum([]byte(strings.Join(parts, "&") + s.apiSecret))
	return hex.EncodeToString(sum[:])
}

// publicID 从 https://res.cloudinary.com/{cloud}/image/upload/v123/{folder}/{name}.jpg 提取 {folder}/{name}
func (s *CloudinaryStorage) publicID(url string) string {
	marker := "/" + s.cloudName + "/image/upload/"
	idx := strings.Index(url, marker)
	if idx < 0 {
		return ""
	}
	rest := url[idx+len(marker):]
	if slash := strings.Index(rest, "/"); slash > 0 && strings.HasPrefix(rest, "v") {
		if _, err := strconv.ParseInt(rest[1:slash], 10, 64); err == nil {
			rest = rest[slash+1:]
		}
	}
	return strings.TrimSuffix(rest, path.Ext(rest))
}

// ==================== 工具函数 ====================

func generateKey(folder, filename string) string {
	datePath := time.Now().Format("2006/01/02")
	return path.Join(folder, datePath, uuid.New().String()+fileExt(filename))
}

func fileExt(filename string) string {
	ext := strings.ToLower(filepath.Ext(filename))
	if ext == "" {
		ext = ".jpg"
	}
	return ext
}
