package gcs

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"cloud.google.com/go/storage"
	"google.golang.org/api/iterator"
	"google.golang.org/api/option"

	"github.com/substationlabs/assetview-backend/internal/platform/dbctx"
	"github.com/substationlabs/assetview-backend/internal/platform/envutil"
	"github.com/substationlabs/assetview-backend/internal/platform/logger"
)

// BucketService is the object store for asset files: 3-D scans, panoramas
// and whatever else gets attached to a record. One bucket, keys laid out as
// assets/<record_id>/<file_id><ext>.
type BucketService interface {
	UploadFile(dbc dbctx.Context, key string, file io.Reader) error
	DeleteFile(dbc dbctx.Context, key string) error
	CopyObject(ctx context.Context, srcKey, dstKey string) error
	ListKeys(ctx context.Context, prefix string) ([]string, error)
	DeletePrefix(ctx context.Context, prefix string) error
	GetObjectAttrs(ctx context.Context, key string) (*ObjectAttrs, error)
	GetPublicURL(key string) string
}

type ObjectAttrs struct {
	Size        int64
	ContentType string
	Updated     time.Time
	ETag        string
}

type bucketService struct {
	log           *logger.Logger
	storageClient *storage.Client
	storageMode   ObjectStorageMode
	emulatorHost  string
	bucketName    string
	cdnDomain     string
	publicBaseURL string
}

func NewBucketService(log *logger.Logger) (BucketService, error) {
	storageCfg, err := ResolveObjectStorageConfigFromEnv()
	if err != nil {
		return nil, fmt.Errorf("resolve object storage config: %w", err)
	}
	return NewBucketServiceWithConfig(log, storageCfg)
}

func NewBucketServiceWithConfig(log *logger.Logger, storageCfg ObjectStorageConfig) (BucketService, error) {
	if err := ValidateObjectStorageConfig(storageCfg); err != nil {
		return nil, fmt.Errorf("validate object storage config: %w", err)
	}
	serviceLog := log.With("service", "BucketService")

	bucketName := envutil.Get("ASSET_GCS_BUCKET_NAME", "")
	if bucketName == "" {
		return nil, fmt.Errorf("missing env var ASSET_GCS_BUCKET_NAME")
	}
	cdnDomain := envutil.Get("ASSET_CDN_DOMAIN", "")

	publicBaseURL, err := resolvePublicBaseURL(storageCfg)
	if err != nil {
		return nil, err
	}

	ctx := context.Background()
	stClient, err := newStorageClientForMode(ctx, storageCfg)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage client: %w", err)
	}

	serviceLog.Info(
		"Object storage initialized",
		"mode", storageCfg.Mode,
		"emulator_host", storageCfg.EmulatorHost,
		"public_base_url", publicBaseURL,
		"bucket", bucketName,
	)

	return &bucketService{
		log:           serviceLog,
		storageClient: stClient,
		storageMode:   storageCfg.Mode,
		emulatorHost:  strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/"),
		bucketName:    bucketName,
		cdnDomain:     cdnDomain,
		publicBaseURL: publicBaseURL,
	}, nil
}

func newStorageClientForMode(ctx context.Context, storageCfg ObjectStorageConfig) (*storage.Client, error) {
	switch storageCfg.Mode {
	case ObjectStorageModeGCS:
		opts := clientOptionsFromEnv()
		opts = append(opts, option.WithScopes(storage.ScopeReadWrite))
		return storage.NewClient(ctx, opts...)
	case ObjectStorageModeGCSEmulator:
		endpoint := strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/")
		_ = os.Setenv("STORAGE_EMULATOR_HOST", endpoint)
		return storage.NewClient(ctx, option.WithoutAuthentication())
	default:
		return nil, fmt.Errorf("invalid object storage mode %q", storageCfg.Mode)
	}
}

func clientOptionsFromEnv() []option.ClientOption {
	creds := envutil.Get("GOOGLE_APPLICATION_CREDENTIALS_JSON", "")
	if creds == "" {
		creds = envutil.Get("GOOGLE_APPLICATION_CREDENTIALS", "")
	}
	if creds == "" {
		return nil
	}
	if strings.HasPrefix(creds, "{") {
		return []option.ClientOption{option.WithCredentialsJSON([]byte(creds))}
	}
	return []option.ClientOption{option.WithCredentialsFile(creds)}
}

func resolvePublicBaseURL(storageCfg ObjectStorageConfig) (string, error) {
	raw := envutil.Get("OBJECT_STORAGE_PUBLIC_BASE_URL", "")
	if raw != "" {
		parsed, err := url.Parse(raw)
		if err != nil || strings.TrimSpace(parsed.Scheme) == "" || strings.TrimSpace(parsed.Host) == "" {
			return "", fmt.Errorf(
				"invalid OBJECT_STORAGE_PUBLIC_BASE_URL=%q; expected absolute URL like http://localhost:4443",
				raw,
			)
		}
		return strings.TrimRight(raw, "/"), nil
	}
	if storageCfg.IsEmulatorMode() {
		return strings.TrimRight(strings.TrimSpace(storageCfg.EmulatorHost), "/"), nil
	}
	return "", nil
}

func (bs *bucketService) UploadFile(dbc dbctx.Context, key string, file io.Reader) error {
	ctx, cancel := context.WithTimeout(dbc.Ctx, 2*time.Minute)
	defer cancel()

	w := bs.storageClient.Bucket(bs.bucketName).Object(key).NewWriter(ctx)
	if ct := ContentTypeForKey(key); ct != "" {
		w.ContentType = ct
	}
	if _, err := io.Copy(w, file); err != nil {
		_ = w.Close()
		return fmt.Errorf("failed to write data to GCS: %w", err)
	}
	if err := w.Close(); err != nil {
		return fmt.Errorf("failed to close GCS writer: %w", err)
	}
	return nil
}

// ContentTypeForKey derives a MIME type from the key's suffix. Unknown
// suffixes return "" and the store falls back to sniffing.
func ContentTypeForKey(key string) string {
	s := strings.ToLower(strings.TrimSpace(key))
	if s == "" {
		return ""
	}
	if i := strings.Index(s, "?"); i >= 0 {
		s = s[:i]
	}
	switch {
	case strings.HasSuffix(s, ".glb"):
		return "model/gltf-binary"
	case strings.HasSuffix(s, ".gltf"):
		return "model/gltf+json"
	case strings.HasSuffix(s, ".obj"):
		return "model/obj"
	case strings.HasSuffix(s, ".png"):
		return "image/png"
	case strings.HasSuffix(s, ".jpg"), strings.HasSuffix(s, ".jpeg"):
		return "image/jpeg"
	case strings.HasSuffix(s, ".webp"):
		return "image/webp"
	case strings.HasSuffix(s, ".gif"):
		return "image/gif"
	case strings.HasSuffix(s, ".svg"):
		return "image/svg+xml"
	case strings.HasSuffix(s, ".pdf"):
		return "application/pdf"
	case strings.HasSuffix(s, ".json"):
		return "application/json"
	default:
		return ""
	}
}

func (bs *bucketService) DeleteFile(dbc dbctx.Context, key string) error {
	ctx, cancel := context.WithTimeout(dbc.Ctx, 30*time.Second)
	defer cancel()
	o := bs.storageClient.Bucket(bs.bucketName).Object(key)
	if err := o.Delete(ctx); err != nil {
		return fmt.Errorf("failed to delete GCS object %q in bucket %q: %w", key, bs.bucketName, err)
	}
	return nil
}

func (bs *bucketService) CopyObject(ctx context.Context, srcKey, dstKey string) error {
	ctx, cancel := context.WithTimeout(ctx, 2*time.Minute)
	defer cancel()
	src := bs.storageClient.Bucket(bs.bucketName).Object(srcKey)
	dst := bs.storageClient.Bucket(bs.bucketName).Object(dstKey)
	if _, err := dst.CopierFrom(src).Run(ctx); err != nil {
		return fmt.Errorf("copy %s->%s: %w", srcKey, dstKey, err)
	}
	return nil
}

func (bs *bucketService) ListKeys(ctx context.Context, prefix string) ([]string, error) {
	ctx, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	it := bs.storageClient.Bucket(bs.bucketName).Objects(ctx, &storage.Query{Prefix: prefix})
	out := []string{}
	for {
		attrs, err := it.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, err
		}
		out = append(out, attrs.Name)
	}
	return out, nil
}

func (bs *bucketService) DeletePrefix(ctx context.Context, prefix string) error {
	keys, err := bs.ListKeys(ctx, prefix)
	if err != nil {
		return err
	}
	for _, k := range keys {
		_ = bs.DeleteFile(dbctx.Context{Ctx: ctx}, k)
	}
	return nil
}

func (bs *bucketService) isEmulatorMode() bool {
	return bs != nil && bs.storageMode == ObjectStorageModeGCSEmulator && strings.TrimSpace(bs.emulatorHost) != ""
}

func (bs *bucketService) emulatorObjectMetaURL(key string) string {
	return fmt.Sprintf(
		"%s/storage/v1/b/%s/o/%s",
		strings.TrimRight(strings.TrimSpace(bs.emulatorHost), "/"),
		url.PathEscape(bs.bucketName),
		url.PathEscape(key),
	)
}

func (bs *bucketService) GetObjectAttrs(ctx context.Context, key string) (*ObjectAttrs, error) {
	if bs.isEmulatorMode() {
		ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
		defer cancel()

		req, err := http.NewRequestWithContext(ctx2, http.MethodGet, bs.emulatorObjectMetaURL(key), nil)
		if err != nil {
			return nil, fmt.Errorf("failed creating emulator attrs request: %w", err)
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			return nil, fmt.Errorf("failed emulator attrs request: %w", err)
		}
		defer resp.Body.Close()
		if resp.StatusCode != http.StatusOK {
			body, _ := io.ReadAll(io.LimitReader(resp.Body, 1024))
			return nil, fmt.Errorf("emulator attrs failed: status=%d body=%s", resp.StatusCode, strings.TrimSpace(string(body)))
		}

		var payload struct {
			Size        string `json:"size"`
			ContentType string `json:"contentType"`
			Updated     string `json:"updated"`
			ETag        string `json:"etag"`
		}
		if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
			return nil, fmt.Errorf("decode emulator attrs: %w", err)
		}
		size, _ := strconv.ParseInt(strings.TrimSpace(payload.Size), 10, 64)
		updated := time.Time{}
		if ts := strings.TrimSpace(payload.Updated); ts != "" {
			if parsed, parseErr := time.Parse(time.RFC3339, ts); parseErr == nil {
				updated = parsed
			}
		}
		return &ObjectAttrs{
			Size:        size,
			ContentType: payload.ContentType,
			Updated:     updated,
			ETag:        payload.ETag,
		}, nil
	}

	ctx2, cancel := context.WithTimeout(ctx, 30*time.Second)
	defer cancel()
	attrs, err := bs.storageClient.Bucket(bs.bucketName).Object(key).Attrs(ctx2)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch GCS object attrs: %w", err)
	}
	return &ObjectAttrs{
		Size:        attrs.Size,
		ContentType: attrs.ContentType,
		Updated:     attrs.Updated,
		ETag:        attrs.Etag,
	}, nil
}

func (bs *bucketService) GetPublicURL(key string) string {
	key = strings.TrimLeft(strings.TrimSpace(key), "/")
	if bs.cdnDomain != "" {
		return fmt.Sprintf("https://%s/%s", bs.cdnDomain, key)
	}
	if bs.isEmulatorMode() {
		base := strings.TrimRight(strings.TrimSpace(bs.publicBaseURL), "/")
		if base == "" {
			base = bs.emulatorHost
		}
		if base != "" {
			return fmt.Sprintf(
				"%s/storage/v1/b/%s/o/%s?alt=media",
				base,
				url.PathEscape(bs.bucketName),
				url.PathEscape(key),
			)
		}
	}
	if bs.publicBaseURL != "" {
		return fmt.Sprintf("%s/%s/%s", bs.publicBaseURL, bs.bucketName, key)
	}
	return fmt.Sprintf("https://storage.googleapis.com/%s/%s", bs.bucketName, key)
}
