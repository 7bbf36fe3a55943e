package identify

import (
	"context"
	"encoding/base64"
	"net/http"

	"google.golang.org/api/option"
	vision "google.golang.org/api/vision/v1"

	"github.com/aquatrace/aquatrace-go/internal/conf"
	"github.com/aquatrace/aquatrace-go/internal/errors"
	"github.com/aquatrace/aquatrace-go/internal/logging"
	"github.com/aquatrace/aquatrace-go/internal/species"
)

// VisionClient identifies species through the Google Cloud Vision label
// detection API and maps the returned labels onto catalog entries.
type VisionClient struct {
	catalog    *species.Catalog
	maxResults int64
	opts       []option.ClientOption
	logger     interface {
		Debug(msg string, args ...any)
		Warn(msg string, args ...any)
	}
}

// NewVisionClient builds a Vision identifier from settings. The optional
// httpClient overrides transport, used in tests to stub the API.
func NewVisionClient(settings *conf.VisionSettings, catalog *species.Catalog, httpClient *http.Client) *VisionClient {
	opts := []option.ClientOption{}
	if settings.APIKey != "" {
		opts = append(opts, option.WithAPIKey(settings.APIKey))
	}
	if settings.Endpoint != "" {
		opts = append(opts, option.WithEndpoint(settings.Endpoint))
	}
	if httpClient != nil {
		opts = append(opts, option.WithoutAuthentication(), option.WithHTTPClient(httpClient))
	}

	maxResults := int64(settings.MaxResults)
	if maxResults <= 0 {
		maxResults = 10
	}

	return &VisionClient{
		catalog:    catalog,
		maxResults: maxResults,
		opts:       opts,
		logger:     logging.ForService("vision"),
	}
}

// Identify implements Identifier. Labels are matched against the catalog in
// score order; the first label naming a known species wins.
func (v *VisionClient) Identify(ctx context.Context, payload Payload) (Result, error) {
	if len(payload.Content) == 0 {
		return Result{}, errors.Newf("vision identification requires image content").
			Component("identify").
			Category(errors.CategoryValidation).
			Context("filename", payload.Filename).
			Build()
	}

	svc, err := vision.NewService(ctx, v.opts...)
	if err != nil {
		return Result{}, errors.New(err).
			Component("identify").
			Category(errors.CategoryNetwork).
			Context("operation", "vision-new-service").
			Build()
	}

	req := &vision.BatchAnnotateImagesRequest{
		Requests: []*vision.AnnotateImageRequest{
			{
				Image: &vision.Image{
					Content: base64.StdEncoding.EncodeToString(payload.Content),
				},
				Features: []*vision.Feature{
					{Type: "LABEL_DETECTION", MaxResults: v.maxResults},
				},
			},
		},
	}

	resp, err := svc.Images.Annotate(req).Context(ctx).Do()
	if err != nil {
		return Result{}, errors.New(err).
			Component("identify").
			Category(errors.CategoryImageFetch).
			Context("operation", "vision-annotate").
			Build()
	}

	if len(resp.Responses) == 0 {
		return v.unknown(), nil
	}

	for _, label := range resp.Responses[0].LabelAnnotations {
		record, ok := v.catalog.MatchLabel(label.Description)
		if !ok {
			continue
		}
		v.logger.Debug("vision label matched catalog",
			"label", label.Description,
			"species", record.ID,
			"score", label.Score)
		return resultFromRecord(record, label.Score, MethodVision), nil
	}

	v.logger.Debug("no vision label matched catalog",
		"labels", len(resp.Responses[0].LabelAnnotations),
		"filename", payload.Filename)
	return v.unknown(), nil
}

func (v *VisionClient) unknown() Result {
	return resultFromRecord(v.catalog.Unknown(), 0, MethodVision)
}
