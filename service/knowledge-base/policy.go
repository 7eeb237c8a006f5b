package knowledgebase

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/base64"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"time"

	"github.com/aliyun/credentials-go/credentials"

	"knowledge-agent-backend/config"
	"knowledge-agent-backend/response"
)

const policyExpiration = time.Hour

// GeneratePolicyToken 生成OSS V4 Post Policy签名，
// 前端凭此直传文件到当前用户的目录下
func GeneratePolicyToken(email string) (*response.GetPolicyTokenResponse, error) {
	credConfig := new(credentials.Config).
		SetType("access_key").
		SetAccessKeyId(config.Cfg.OSS.AccessKeyID).
		SetAccessKeySecret(config.Cfg.OSS.AccessKeySecret)

	cred, err := credentials.NewCredential(credConfig)
	if err != nil {
		return nil, fmt.Errorf("failed to create credential: %v", err)
	}

	accessKeyID, err := cred.GetAccessKeyId()
	if err != nil {
		return nil, fmt.Errorf("failed to get access key id: %v", err)
	}
	accessKeySecret, err := cred.GetAccessKeySecret()
	if err != nil {
		return nil, fmt.Errorf("failed to get access key secret: %v", err)
	}
	securityToken, err := cred.GetSecurityToken()
	if err != nil {
		return nil, fmt.Errorf("failed to get security token: %v", err)
	}

	now := time.Now().UTC()
	date := now.Format("20060102")
	ossDate := now.Format("20060102T150405Z")
	expiration := now.Add(policyExpiration).Format("2006-01-02T15:04:05.000Z")
	credential := fmt.Sprintf("%s/%s/%s/oss/aliyun_v4_request", *accessKeyID, date, config.Cfg.OSS.Region)

	// 限制只能上传到当前用户的目录
	dir := email + "/"

	policy := map[string]any{
		"expiration": expiration,
		"conditions": []any{
			map[string]string{"bucket": config.Cfg.OSS.BucketName},
			map[string]string{"x-oss-signature-version": "OSS4-HMAC-SHA256"},
			map[string]string{"x-oss-credential": credential},
			map[string]string{"x-oss-date": ossDate},
			[]string{"starts-with", "$key", dir},
		},
	}

	policyJSON, err := json.Marshal(policy)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal policy: %v", err)
	}
	policyBase64 := base64.StdEncoding.EncodeToString(policyJSON)

	signature := signPolicyV4(*accessKeySecret, date, config.Cfg.OSS.Region, policyBase64)

	token := ""
	if securityToken != nil {
		token = *securityToken
	}

	return &response.GetPolicyTokenResponse{
		Policy:           policyBase64,
		SecurityToken:    token,
		SignatureVersion: "OSS4-HMAC-SHA256",
		Credential:       credential,
		Date:             ossDate,
		Signature:        signature,
		Host:             config.Cfg.OSS.Host,
		Dir:              dir,
	}, nil
}

// signPolicyV4 V4签名密钥派生链：date -> region -> oss -> aliyun_v4_request
func signPolicyV4(accessKeySecret, date, region, policyBase64 string) string {
	dateKey := hmacSHA256([]byte("aliyun_v4"+accessKeySecret), date)
	regionKey := hmacSHA256(dateKey, region)
	serviceKey := hmacSHA256(regionKey, "oss")
	signingKey := hmacSHA256(serviceKey, "aliyun_v4_request")
	return hex.EncodeToString(hmacSHA256(signingKey, policyBase64))
}

func hmacSHA256(key []byte, data string) []byte {
	h := hmac.New(sha256.New, key)
	h.Write([]byte(data))
	return h.Sum(nil)
}
