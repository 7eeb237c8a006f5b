package knowledgebase

import (
	"context"
	"fmt"
	"io"
	"time"

	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss"
	"github.com/aliyun/alibabacloud-oss-go-sdk-v2/oss/credentials"

	"knowledge-agent-backend/config"
	"knowledge-agent-backend/model"
	"knowledge-agent-backend/service/ingestion"
)

const presignedURLExpiration = 15 * time.Minute

// Storage OSS对象存储客户端，LOCAL来源知识的原始文件由前端直传至OSS
type Storage struct{}

var _ ingestion.Storage = &Storage{}

func NewStorage() *Storage {
	return &Storage{}
}

func newOSSClient() *oss.Client {
	cfg := &oss.Config{
		Region: oss.Ptr(config.Cfg.OSS.Region),
		CredentialsProvider: credentials.NewStaticCredentialsProvider(
			config.Cfg.OSS.AccessKeyID,
			config.Cfg.OSS.AccessKeySecret,
		),
	}
	return oss.NewClient(cfg)
}

// ObjectName 知识原始文件在OSS上的存放路径，与前端直传目录保持一致
func ObjectName(k *model.Knowledge) string {
	return k.UserEmail + "/" + k.FileName
}

func (s *Storage) DownloadFile(ctx context.Context, k *model.Knowledge) ([]byte, error) {
	client := newOSSClient()

	result, err := client.GetObject(ctx, &oss.GetObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(ObjectName(k)),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to get object from oss: %v", err)
	}
	defer result.Body.Close()

	data, err := io.ReadAll(result.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read object: %v", err)
	}

	return data, nil
}

func DeleteObject(ctx context.Context, objectName string) error {
	client := newOSSClient()

	_, err := client.DeleteObject(ctx, &oss.DeleteObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(objectName),
	})
	if err != nil {
		return fmt.Errorf("failed to delete object %s: %v", objectName, err)
	}
	return nil
}

func GeneratePresignedURL(objectName string) (string, error) {
	client := newOSSClient()

	result, err := client.Presign(context.Background(), &oss.GetObjectRequest{
		Bucket: oss.Ptr(config.Cfg.OSS.BucketName),
		Key:    oss.Ptr(objectName),
	}, oss.PresignExpires(presignedURLExpiration))
	if err != nil {
		return "", fmt.Errorf("failed to presign object %s: %v", objectName, err)
	}

	return result.URL, nil
}
