package syncprovider

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"strings"

	"github.com/avast/retry-go/v4"

	"knowledge-agent-backend/model"
	"knowledge-agent-backend/service/ingestion"
	"knowledge-agent-backend/utils"
)

const (
	dropboxAPIBase     = "https://api.dropboxapi.com/2"
	dropboxContentBase = "https://content.dropboxapi.com/2"

	dropboxTagFolder = "folder"
)

type dropboxEntry struct {
	Tag            string `json:".tag"`
	ID             string `json:"id"`
	Name           string `json:"name"`
	PathLower      string `json:"path_lower"`
	PathDisplay    string `json:"path_display"`
	ServerModified string `json:"server_modified"`
}

type dropboxListResult struct {
	Entries []dropboxEntry `json:"entries"`
	HasMore bool           `json:"has_more"`
}

// Dropbox Dropbox HTTP API v2 客户端，文件通过id寻址
type Dropbox struct {
	client *http.Client
}

var _ ingestion.SyncProvider = &Dropbox{}

func NewDropbox() *Dropbox {
	return &Dropbox{
		client: utils.DefaultHTTPClient(),
	}
}

func (d *Dropbox) GetFilesByID(ctx context.Context, credentials json.RawMessage, fileIDs []string) ([]model.SyncFile, error) {
	token, err := accessToken(credentials)
	if err != nil {
		return nil, err
	}

	files := make([]model.SyncFile, 0, len(fileIDs))
	for _, fileID := range fileIDs {
		payload := map[string]string{"path": fileID}

		var entry dropboxEntry
		if err := d.postJSON(ctx, token, dropboxAPIBase+"/files/get_metadata", payload, &entry); err != nil {
			return nil, fmt.Errorf("failed to get metadata of %s: %w", fileID, err)
		}
		files = append(files, dropboxToSyncFile(&entry))
	}

	return files, nil
}

func (d *Dropbox) ListChildren(ctx context.Context, credentials json.RawMessage, folderID string) ([]model.SyncFile, error) {
	token, err := accessToken(credentials)
	if err != nil {
		return nil, err
	}

	payload := map[string]any{
		"path":  folderID,
		"limit": listPageSize,
	}

	var result dropboxListResult
	if err := d.postJSON(ctx, token, dropboxAPIBase+"/files/list_folder", payload, &result); err != nil {
		return nil, fmt.Errorf("failed to list folder %s: %w", folderID, err)
	}

	children := make([]model.SyncFile, 0, len(result.Entries))
	for i := range result.Entries {
		child := dropboxToSyncFile(&result.Entries[i])
		child.ParentID = folderID
		children = append(children, child)
	}

	return children, nil
}

func (d *Dropbox) Download(ctx context.Context, credentials json.RawMessage, file *model.SyncFile) ([]byte, error) {
	token, err := accessToken(credentials)
	if err != nil {
		return nil, err
	}

	arg, err := json.Marshal(map[string]string{"path": file.ID})
	if err != nil {
		return nil, err
	}

	data, err := retry.DoWithData(
		func() ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, dropboxContentBase+"/files/download", nil)
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Dropbox-API-Arg", string(arg))

			resp, err := d.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			return readDropboxResponse(resp)
		},
		retry.Context(ctx),
		retry.Attempts(requestAttempts),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to download file %s: %w", file.ID, err)
	}

	return data, nil
}

func (d *Dropbox) postJSON(ctx context.Context, token, requestURL string, payload any, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	data, err := retry.DoWithData(
		func() ([]byte, error) {
			req, err := http.NewRequestWithContext(ctx, http.MethodPost, requestURL, bytes.NewReader(body))
			if err != nil {
				return nil, retry.Unrecoverable(err)
			}
			req.Header.Set("Authorization", "Bearer "+token)
			req.Header.Set("Content-Type", "application/json")

			resp, err := d.client.Do(req)
			if err != nil {
				return nil, err
			}
			defer resp.Body.Close()

			return readDropboxResponse(resp)
		},
		retry.Context(ctx),
		retry.Attempts(requestAttempts),
		retry.DelayType(retry.BackOffDelay),
	)
	if err != nil {
		return err
	}

	return json.Unmarshal(data, out)
}

// readDropboxResponse Dropbox用409表达path/not_found一类的业务错误
func readDropboxResponse(resp *http.Response) ([]byte, error) {
	switch {
	case resp.StatusCode == http.StatusOK:
		return io.ReadAll(resp.Body)
	case resp.StatusCode == http.StatusConflict:
		body, _ := io.ReadAll(resp.Body)
		if strings.Contains(string(body), "not_found") {
			return nil, retry.Unrecoverable(ingestion.ErrFileNotFound)
		}
		return nil, retry.Unrecoverable(fmt.Errorf("dropbox api error %d: %s", resp.StatusCode, body))
	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		body, _ := io.ReadAll(resp.Body)
		return nil, retry.Unrecoverable(fmt.Errorf("dropbox api error %d: %s", resp.StatusCode, body))
	default:
		return nil, fmt.Errorf("dropbox api error %d", resp.StatusCode)
	}
}

func dropboxToSyncFile(entry *dropboxEntry) model.SyncFile {
	isFolder := entry.Tag == dropboxTagFolder

	extension := ""
	if !isFolder {
		extension = strings.ToLower(filepath.Ext(entry.Name))
	}

	return model.SyncFile{
		ID:             entry.ID,
		Name:           entry.Name,
		Extension:      extension,
		IsFolder:       isFolder,
		LastModifiedAt: parseRemoteTime(entry.ServerModified),
		WebViewLink:    "https://www.dropbox.com/home" + entry.PathDisplay,
	}
}
