package storage

import (
	"context"
	"time"

	"github.com/Azure/azure-sdk-for-go/sdk/azcore"
	"github.com/Azure/azure-sdk-for-go/sdk/azcore/policy"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob"
	"github.com/Azure/azure-sdk-for-go/sdk/storage/azblob/blob"
	"github.com/google/uuid"
)

// Vault stores evidence files in Azure Blob Storage. Task records carry
// only the blob URL returned here, never the bytes themselves.
type Vault struct {
	client    *azblob.Client
	container string
}

// NewVault creates a Vault from the given connection string and container.
func NewVault(connStr, container string) (*Vault, error) {
	blobClientOptions := azblob.ClientOptions{
		ClientOptions: azcore.ClientOptions{
			Retry: policy.RetryOptions{
				MaxRetries:    3,
				TryTimeout:    time.Minute * 3,
				RetryDelay:    time.Second * 1,
				MaxRetryDelay: time.Second * 15,
				StatusCodes:   []int{408, 429, 500, 502, 503, 504},
			},
		},
	}
	client, err := azblob.NewClientFromConnectionString(connStr, &blobClientOptions)
	if err != nil {
		return nil, err
	}
	return &Vault{client: client, container: container}, nil
}

// Store uploads evidence bytes under a unique blob name and returns its URL.
func (v *Vault) Store(ctx context.Context, name, mimeType string, data []byte) (string, error) {
	blobName := uuid.NewString() + "/" + name
	opts := &azblob.UploadBufferOptions{}
	if mimeType != "" {
		opts.HTTPHeaders = &blob.HTTPHeaders{BlobContentType: &mimeType}
	}
	if _, err := v.client.UploadBuffer(ctx, v.container, blobName, data, opts); err != nil {
		return "", err
	}
	return v.client.ServiceClient().NewContainerClient(v.container).NewBlobClient(blobName).URL(), nil
}
