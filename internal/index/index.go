// Package index provides bbox lookups over a feature collection.
package index

import (
	"github.com/dhconnelly/rtreego"
	"github.com/paulmach/orb"
	"github.com/paulmach/orb/geojson"
)

// minExtent pads degenerate bounds; rtreego rejects zero-length sides.
const minExtent = 1e-9

type entry struct {
	rect    rtreego.Rect
	feature *geojson.Feature
}

func (e *entry) Bounds() rtreego.Rect {
	return e.rect
}

// FeatureIndex is an R-tree over the features of a collection.
type FeatureIndex struct {
	tree *rtreego.Rtree
	size int
}

// New builds an index over all features with a geometry.
func New(fc *geojson.FeatureCollection) (*FeatureIndex, error) {
	idx := &FeatureIndex{tree: rtreego.NewTree(2, 25, 50)}

	for _, f := range fc.Features {
		if f == nil || f.Geometry == nil {
			continue
		}

		rect, err := rectFromBound(f.Geometry.Bound())
		if err != nil {
			return nil, err
		}

		idx.tree.Insert(&entry{rect: rect, feature: f})
		idx.size++
	}

	return idx, nil
}

// Len returns the number of indexed features.
func (idx *FeatureIndex) Len() int {
	return idx.size
}

// Search returns all features whose bounding box intersects b.
func (idx *FeatureIndex) Search(b orb.Bound) ([]*geojson.Feature, error) {
	rect, err := rectFromBound(b)
	if err != nil {
		return nil, err
	}

	hits := idx.tree.SearchIntersect(rect)
	features := make([]*geojson.Feature, 0, len(hits))
	for _, h := range hits {
		features = append(features, h.(*entry).feature)
	}

	return features, nil
}

func rectFromBound(b orb.Bound) (rtreego.Rect, error) {
	w := b.Max[0] - b.Min[0]
	h := b.Max[1] - b.Min[1]
	if w < minExtent {
		w = minExtent
	}
	if h < minExtent {
		h = minExtent
	}

	return rtreego.NewRect(rtreego.Point{b.Min[0], b.Min[1]}, []float64{w, h})
}
