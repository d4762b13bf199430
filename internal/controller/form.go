package controller

import (
	"encoding/json"
	"fmt"
	"io"
	"mime/multipart"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"tesla_parts_api/internal/api/dto"
)

// 单个上传文件上限
const maxUploadSize = 10 << 20

// ==================== multipart 解析 ====================

// multipartForm 同时兼容 multipart 与 urlencoded 表单
func multipartForm(ctx *gin.Context) (*multipart.Form, error) {
	form, err := ctx.MultipartForm()
	if err == nil {
		return form, nil
	}
	if perr := ctx.Request.ParseForm(); perr != nil {
		return nil, perr
	}
	return &multipart.Form{Value: ctx.Request.PostForm}, nil
}

func formValue(form *multipart.Form, key string) (string, bool) {
	values, ok := form.Value[key]
	if !ok || len(values) == 0 {
		return "", false
	}
	return strings.TrimSpace(values[0]), true
}

// formOptString 缺省返回 nil
func formOptString(form *multipart.Form, key string) *string {
	v, ok := formValue(form, key)
	if !ok {
		return nil
	}
	return &v
}

func formFloat(form *multipart.Form, key string) (float64, error) {
	v, ok := formValue(form, key)
	if !ok || v == "" {
		return 0, nil
	}
	f, err := strconv.ParseFloat(v, 64)
	if err != nil {
		return 0, fmt.Errorf("%s must be a number", key)
	}
	return f, nil
}

func formBool(form *multipart.Form, key string) bool {
	v, _ := formValue(form, key)
	b, _ := strconv.ParseBool(v)
	return b
}

// formList 多值字段，兼容重复字段、逗号分隔与 JSON 数组；字段缺省返回 nil
func formList(form *multipart.Form, key string) []string {
	values, ok := form.Value[key]
	if !ok {
		values, ok = form.Value[key+"[]"]
	}
	if !ok {
		return nil
	}
	out := []string{}
	for _, raw := range values {
		raw = strings.TrimSpace(raw)
		if strings.HasPrefix(raw, "[") {
			var arr []interface{}
			dec := json.NewDecoder(strings.NewReader(raw))
			dec.UseNumber()
			if err := dec.Decode(&arr); err == nil {
				for _, item := range arr {
					if s := strings.TrimSpace(fmt.Sprint(item)); s != "" {
						out = append(out, s)
					}
				}
				continue
			}
		}
		for _, part := range strings.Split(raw, ",") {
			if s := strings.TrimSpace(part); s != "" {
				out = append(out, s)
			}
		}
	}
	return out
}

// formInt64List 同 formList，元素须为整数
func formInt64List(form *multipart.Form, key string) ([]int64, error) {
	items := formList(form, key)
	if items == nil {
		return nil, nil
	}
	ids := make([]int64, 0, len(items))
	for _, item := range items {
		id, err := strconv.ParseInt(item, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("%s must contain integers", key)
		}
		ids = append(ids, id)
	}
	return ids, nil
}

// formFiles 读入内存，空文件跳过
func formFiles(form *multipart.Form, key string) ([]*dto.UploadFile, error) {
	if form.File == nil {
		return nil, nil
	}
	var files []*dto.UploadFile
	for _, fh := range form.File[key] {
		f, err := readUpload(fh)
		if err != nil {
			return nil, err
		}
		if f.HasContent() {
			files = append(files, f)
		}
	}
	return files, nil
}

func formFile(form *multipart.Form, key string) (*dto.UploadFile, error) {
	files, err := formFiles(form, key)
	if err != nil || len(files) == 0 {
		return nil, err
	}
	return files[0], nil
}

func readUpload(fh *multipart.FileHeader) (*dto.UploadFile, error) {
	if fh.Size > maxUploadSize {
		return nil, fmt.Errorf("file %s exceeds %d MB", fh.Filename, maxUploadSize>>20)
	}
	src, err := fh.Open()
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer src.Close()
	data, err := io.ReadAll(src)
	if err != nil {
		return nil, fmt.Errorf("read upload: %w", err)
	}
	return &dto.UploadFile{
		Filename:    fh.Filename,
		ContentType: fh.Header.Get("Content-Type"),
		Data:        data,
	}, nil
}

func errInvalidField(key string) error {
	return fmt.Errorf("%s is invalid", key)
}
