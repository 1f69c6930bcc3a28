package relay

import (
	"context"

	"github.com/charmbracelet/log"

	"github.com/blacktop/skyrelay/internal/logutil"
)

// BuildEmbed assembles a link-preview embed from fetched metadata and
// thumbnail bytes. The embed is only emitted when a thumbnail was actually
// obtained; title and description alone do not warrant one. A failed blob
// upload downgrades the post to text-only rather than failing the cycle.
// Warnings go through logger, which carries the calling relay's account
// pair; a nil logger falls back to the process logger.
func BuildEmbed(ctx context.Context, dest DestinationClient, meta *LinkMetadata, image []byte, url string, logger *log.Logger) *Embed {
	if meta == nil || len(image) == 0 {
		return nil
	}
	if logger == nil {
		logger = logutil.With()
	}

	blob, err := dest.UploadBlob(ctx, image)
	if err != nil {
		logger.Warnf("thumbnail upload for %s: %v", url, err)
		return nil
	}

	return &Embed{
		Title:       meta.Title,
		Description: meta.Description,
		URI:         url,
		Thumb:       blob,
	}
}
