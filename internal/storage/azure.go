package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/Azure/azure-sdk-for-go/sdk/azidentity"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/sirupsen/logrus"
)

// AzureStorage archives report snapshots in Azure Blob Storage. Snapshots are
// small JSON documents, so uploads go through the buffer helper rather than
// the streaming API.
type AzureStorage struct {
	client    *azblob.Client
	container string
}

var _ StorageInterface = (*AzureStorage)(nil)

// NewAzureStorage creates a blob archive on the given account using the
// ambient credential chain (managed identity in-cluster, az login locally)
func NewAzureStorage(account, container string) (*AzureStorage, error) {
	if account == "" {
		return nil, fmt.Errorf("storage account name is required")
	}

	credential, err := azidentity.NewDefaultAzureCredential(nil)
	if err != nil {
		return nil, fmt.Errorf("create Azure credential: %w", err)
	}

	serviceURL := fmt.Sprintf("https://%s.blob.core.windows.net/", account)
	client, err := azblob.NewClient(serviceURL, credential, nil)
	if err != nil {
		return nil, fmt.Errorf("create blob client: %w", err)
	}

	s := &AzureStorage{client: client, container: container}
	if err := s.ensureContainer(); err != nil {
		return nil, err
	}
	return s, nil
}

func (s *AzureStorage) ensureContainer() error {
	_, err := s.client.CreateContainer(context.Background(), s.container, nil)
	if err == nil {
		logrus.Infof("Created container %s", s.container)
		return nil
	}
	if strings.Contains(err.Error(), "ContainerAlreadyExists") {
		return nil
	}
	return fmt.Errorf("create container %s: %w", s.container, err)
}

// Store uploads a snapshot, typed application/json so the portal and any
// direct consumers render it as such
func (s *AzureStorage) Store(filename string, data []byte) error {
	contentType := "application/json"
	_, err := s.client.UploadBuffer(context.Background(), s.container, filename, data, &azblob.UploadBufferOptions{
		HTTPHeaders: &blob.HTTPHeaders{BlobContentType: &contentType},
	})
	if err != nil {
		return fmt.Errorf("upload %s: %w", filename, err)
	}
	logrus.Infof("Archived %s in container %s", filename, s.container)
	return nil
}

// Retrieve downloads an archived snapshot
func (s *AzureStorage) Retrieve(filename string) ([]byte, error) {
	resp, err := s.client.DownloadStream(context.Background(), s.container, filename, nil)
	if err != nil {
		return nil, fmt.Errorf("download %s: %w", filename, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", filename, err)
	}
	return data, nil
}

// List returns archived snapshot names under a prefix
func (s *AzureStorage) List(prefix string) ([]string, error) {
	var names []string
	pager := s.client.NewListBlobsFlatPager(s.container, &azblob.ListBlobsFlatOptions{Prefix: &prefix})

	for pager.More() {
		page, err := pager.NextPage(context.Background())
		if err != nil {
			return nil, fmt.Errorf("list %s: %w", s.container, err)
		}
		for _, item := range page.Segment.BlobItems {
			if item.Name != nil {
				names = append(names, *item.Name)
			}
		}
	}
	return names, nil
}

// Delete removes an archived snapshot
func (s *AzureStorage) Delete(filename string) error {
	if _, err := s.client.DeleteBlob(context.Background(), s.container, filename, nil); err != nil {
		return fmt.Errorf("delete %s: %w", filename, err)
	}
	return nil
}
