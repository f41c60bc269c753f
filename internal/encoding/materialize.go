package encoding

import (
	"context"
	"fmt"

	"encodeflow/internal/assets"
	"encodeflow/internal/services"
)

// derivedSizePlaceholder stands in for the byte size of provider output.
// The provider uploads asynchronously, so the real size is unknown here and
// is left for the storage side to fill in.
const derivedSizePlaceholder = 1

// Materialize creates or updates one derived record per configured rendition
// and thumbnail of root. Records are keyed by (parent, suffix), so repeated
// calls update in place.
func (m *Manager) Materialize(ctx context.Context, root *assets.Asset) ([]*assets.Asset, error) {
	if !root.IsRoot() || root.ID <= 0 {
		return nil, services.Wrap(services.ErrValidation, "encoding", "materialize", "a persisted root asset is required", nil)
	}

	derived := make([]*assets.Asset, 0, len(m.encoding.Renditions)+len(m.encoding.Thumbnails))
	for _, rendition := range m.encoding.Renditions {
		child, err := m.store.FindOrInitChild(ctx, root.ID, rendition.Suffix)
		if err != nil {
			return derived, err
		}
		child.ContentType = assets.VideoContentType
		child.Filename = assets.RenditionFilename(root.Filename, rendition.Suffix)
		child.Size = derivedSizePlaceholder
		child.Width = nil
		child.Height = nil
		if err := m.store.Save(ctx, child); err != nil {
			return derived, fmt.Errorf("save rendition %q: %w", rendition.Suffix, err)
		}
		derived = append(derived, child)
	}
	for _, thumb := range m.encoding.Thumbnails {
		child, err := m.store.FindOrInitChild(ctx, root.ID, thumb.Suffix)
		if err != nil {
			return derived, err
		}
		width, height := thumb.Width, thumb.Height
		child.ContentType = assets.ImageContentType
		child.Filename = assets.ThumbnailFilename(root.Filename, thumb.Suffix)
		child.Size = derivedSizePlaceholder
		child.Width = &width
		child.Height = &height
		if err := m.store.Save(ctx, child); err != nil {
			return derived, fmt.Errorf("save thumbnail %q: %w", thumb.Suffix, err)
		}
		derived = append(derived, child)
	}
	return derived, nil
}
