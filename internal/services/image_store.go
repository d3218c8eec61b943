package services

import (
	"bytes"
	"context"
	"encoding/base64"
	"fmt"
	"io"
	"mime/multipart"
	"net/http"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// UploadedImage 上传结果，Key 供之后删除使用
type UploadedImage struct {
	URL string `json:"url"`
	Key string `json:"-"`
}

// ImageStore 帖子图片的对象存储
type ImageStore interface {
	Upload(ctx context.Context, filename string, r io.Reader) (*UploadedImage, error)
	Delete(ctx context.Context, key string) error
}

// imgurResponse Imgur API 响应结构
type imgurResponse struct {
	Data struct {
		ID         string `json:"id"`
		Link       string `json:"link"`
		DeleteHash string `json:"deletehash"`
		Type       string `json:"type"`
	} `json:"data"`
	Success bool `json:"success"`
	Status  int  `json:"status"`
}

// ImgurStore 基于 Imgur 匿名上传接口的 ImageStore
type ImgurStore struct {
	clientID string
	baseURL  string
	client   *http.Client
}

func NewImgurStore(clientID, baseURL string, timeout time.Duration) *ImgurStore {
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &ImgurStore{
		clientID: clientID,
		baseURL:  strings.TrimSuffix(baseURL, "/"),
		client:   &http.Client{Timeout: timeout},
	}
}

// Upload 以 base64 表单上传图片
func (s *ImgurStore) Upload(ctx context.Context, filename string, r io.Reader) (*UploadedImage, error) {
	if s.clientID == "" {
		return nil, fmt.Errorf("IMGUR_CLIENT_ID 未配置")
	}

	fileBytes, err := io.ReadAll(r)
	if err != nil {
		return nil, fmt.Errorf("读取文件失败: %w", err)
	}
	if len(fileBytes) == 0 {
		return nil, fmt.Errorf("图片 %s 为空: %w", filename, ErrValidation)
	}

	var body bytes.Buffer
	writer := multipart.NewWriter(&body)
	if err := writer.WriteField("image", base64.StdEncoding.EncodeToString(fileBytes)); err != nil {
		return nil, fmt.Errorf("写入请求体失败: %w", err)
	}
	if err := writer.WriteField("type", "base64"); err != nil {
		return nil, fmt.Errorf("写入请求体失败: %w", err)
	}
	if err := writer.WriteField("name", filename); err != nil {
		return nil, fmt.Errorf("写入请求体失败: %w", err)
	}
	writer.Close()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL, &body)
	if err != nil {
		return nil, fmt.Errorf("创建请求失败: %w", err)
	}
	req.Header.Set("Content-Type", writer.FormDataContentType())

	var resp imgurResponse
	if err := s.do(req, &resp); err != nil {
		return nil, fmt.Errorf("上传图片失败: %w", err)
	}
	if !resp.Success || resp.Data.Link == "" {
		return nil, fmt.Errorf("Imgur 上传失败: status %d", resp.Status)
	}

	return &UploadedImage{URL: resp.Data.Link, Key: resp.Data.DeleteHash}, nil
}

// Delete 通过 deletehash 删除图片
func (s *ImgurStore) Delete(ctx context.Context, key string) error {
	if key == "" {
		return nil
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, s.baseURL+"/"+key, nil)
	if err != nil {
		return fmt.Errorf("创建请求失败: %w", err)
	}

	var resp imgurResponse
	if err := s.do(req, &resp); err != nil {
		return fmt.Errorf("删除图片失败: %w", err)
	}
	if !resp.Success {
		return fmt.Errorf("Imgur 删除失败: status %d", resp.Status)
	}
	return nil
}

func (s *ImgurStore) do(req *http.Request, out interface{}) error {
	req.Header.Set("Authorization", "Client-ID "+s.clientID)

	resp, err := s.client.Do(req)
	if err != nil {
		return err
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("读取响应失败: %w", err)
	}
	if resp.StatusCode >= 500 {
		return fmt.Errorf("HTTP 状态码: %d", resp.StatusCode)
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("解析响应失败: %w", err)
	}
	return nil
}
