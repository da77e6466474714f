package storage

import (
	"context"
	"fmt"
	"io"
	"strings"

	gcs "cloud.google.com/go/storage"
	firebase "firebase.google.com/go"
	log "github.com/sirupsen/logrus"
	"google.golang.org/api/option"
)

const publicURLPrefix = "https://storage.googleapis.com/"

// Firebase stores files in a Firebase Storage bucket under products/ and
// returns their public URL.
type Firebase struct {
	app    *firebase.App
	bucket string
}

// NewFirebase initialises the Firebase app. credentials may be inline JSON,
// a file path, or empty for application default credentials.
func NewFirebase(ctx context.Context, bucket, credentials string) (*Firebase, error) {
	if bucket == "" {
		return nil, fmt.Errorf("firebase storage bucket is not set")
	}

	var opts []option.ClientOption
	switch {
	case strings.HasPrefix(credentials, "{"):
		log.Info("Using Firebase credentials from environment variable")
		opts = append(opts, option.WithCredentialsJSON([]byte(credentials)))
	case credentials != "":
		log.WithField("file", credentials).Info("Using Firebase credentials from file")
		opts = append(opts, option.WithCredentialsFile(credentials))
	default:
		log.Warn("GOOGLE_APPLICATION_CREDENTIALS not set, using default credentials")
	}

	app, err := firebase.NewApp(ctx, nil, opts...)
	if err != nil {
		return nil, fmt.Errorf("firebase init failed: %w", err)
	}
	return &Firebase{app: app, bucket: bucket}, nil
}

func (f *Firebase) bucketHandle(ctx context.Context) (*gcs.BucketHandle, error) {
	client, err := f.app.Storage(ctx)
	if err != nil {
		return nil, err
	}
	return client.Bucket(f.bucket)
}

func (f *Firebase) Save(ctx context.Context, name string, r io.Reader, contentType string) (string, error) {
	bucket, err := f.bucketHandle(ctx)
	if err != nil {
		return "", err
	}

	objectPath := "products/" + sanitizeFilename(name)
	obj := bucket.Object(objectPath)
	wc := obj.NewWriter(ctx)
	wc.ContentType = contentType

	if _, err := io.Copy(wc, r); err != nil {
		wc.Close()
		return "", err
	}
	if err := wc.Close(); err != nil {
		return "", fmt.Errorf("failed to finalize upload: %w", err)
	}

	// Public read so Telegram can fetch the photo by URL.
	if err := obj.ACL().Set(ctx, gcs.AllUsers, gcs.RoleReader); err != nil {
		log.WithError(err).WithField("object", objectPath).Warn("Failed to set public ACL")
	}

	return publicURLPrefix + f.bucket + "/" + objectPath, nil
}

func (f *Firebase) Delete(ctx context.Context, ref string) error {
	objectPath, err := ExtractObjectPath(ref)
	if err != nil {
		return err
	}
	bucket, err := f.bucketHandle(ctx)
	if err != nil {
		return err
	}
	if err := bucket.Object(objectPath).Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete object %s: %w", objectPath, err)
	}
	return nil
}

// ExtractObjectPath extracts the storage object path from a public bucket URL.
func ExtractObjectPath(url string) (string, error) {
	if !strings.HasPrefix(url, publicURLPrefix) {
		return "", fmt.Errorf("invalid URL")
	}

	path := strings.TrimPrefix(url, publicURLPrefix)
	parts := strings.SplitN(path, "/", 2)
	if len(parts) != 2 || parts[1] == "" {
		return "", fmt.Errorf("invalid URL format")
	}

	return parts[1], nil
}
