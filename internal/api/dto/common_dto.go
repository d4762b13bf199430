package dto

// UploadFile 已读入内存的上传文件
type UploadFile struct {
	Filename    string
	ContentType string
	Data        []byte
}

// HasContent 是否带有实际内容
func (f *UploadFile) HasContent() bool {
	return f != nil && f.Filename != "" && len(f.Data) > 0
}

// OKResponse 删除类接口的结果
type OKResponse struct {
	OK bool `json:"ok"`
}
