package scrape

import (
	"context"

	"github.com/ternarybob/jobfinder/internal/interfaces"
	"github.com/ternarybob/jobfinder/internal/models"
)

// contentSampler implements interfaces.ContentSampler (spec §4.7
// SOURCE_RECOVER step 1).
type contentSampler struct {
	fetch    *fetcher
	renderer interfaces.Renderer
}

func NewContentSampler(fetch *fetcher, renderer interfaces.Renderer) interfaces.ContentSampler {
	return &contentSampler{fetch: fetch, renderer: renderer}
}

const sourceRecoverRenderTimeoutMS = 20000

func (s *contentSampler) Sample(ctx context.Context, rawURL string, sourceType models.SourceType) (string, interfaces.RenderStatus, error) {
	if sourceType != models.SourceTypeHTML || s.renderer == nil {
		body, err := s.fetch.Get(ctx, "source-recover", rawURL, nil)
		if err != nil {
			return "", interfaces.RenderError, err
		}
		return string(body), interfaces.RenderOK, nil
	}

	result, err := s.renderer.Render(ctx, interfaces.RenderRequest{URL: rawURL, TimeoutMS: sourceRecoverRenderTimeoutMS})
	if err == nil && result.Status == interfaces.RenderOK && result.HTML != "" {
		return result.HTML, result.Status, nil
	}

	body, fetchErr := s.fetch.Get(ctx, "source-recover", rawURL, nil)
	if fetchErr != nil {
		if err != nil {
			return "", interfaces.RenderError, err
		}
		return "", interfaces.RenderError, fetchErr
	}
	return string(body), interfaces.RenderPartial, nil
}
