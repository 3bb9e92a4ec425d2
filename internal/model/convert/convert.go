// Package convert provides functions to convert between journal memories and GORM models
package convert

import (
	"encoding/json"
	"fmt"

	"github.com/littleexplorer/atlas/internal/geo"
	"github.com/littleexplorer/atlas/internal/model"
	"github.com/littleexplorer/atlas/pkg/core"
	"gorm.io/datatypes"
)

// MemoryToPoint builds the memory_points row for the memory at position ordinal of a snapshot.
func MemoryToPoint(snapshotKey string, ordinal int, m core.Memory) (model.MemoryPoint, error) {
	position, err := geo.Point3857(m.Coordinates)
	if err != nil {
		return model.MemoryPoint{}, fmt.Errorf("memory %s: %w", m.ID, err)
	}

	tags := m.Tags
	if tags == nil {
		tags = []string{}
	}
	tagJSON, err := json.Marshal(tags)
	if err != nil {
		return model.MemoryPoint{}, fmt.Errorf("memory %s: failed to marshal tags: %w", m.ID, err)
	}

	return model.MemoryPoint{
		SnapshotKey:  snapshotKey,
		Ordinal:      ordinal,
		MemoryID:     m.ID,
		LocationName: m.LocationName,
		VisitedOn:    m.Date.Time,
		Position:     position,
		Tags:         datatypes.JSON(tagJSON),
	}, nil
}

// MemoriesToPoints converts a whole collection, keeping its order in Ordinal.
func MemoriesToPoints(snapshotKey string, memories []core.Memory) ([]model.MemoryPoint, error) {
	points := make([]model.MemoryPoint, 0, len(memories))
	for i, m := range memories {
		p, err := MemoryToPoint(snapshotKey, i, m)
		if err != nil {
			return nil, err
		}
		points = append(points, p)
	}
	return points, nil
}

// PointCoordinates returns the WGS84 location of a stored point.
func PointCoordinates(p model.MemoryPoint) (core.Coordinates, bool) {
	return geo.Coordinates3857(p.Position)
}

// PointTags decodes the stored tag list.
func PointTags(p model.MemoryPoint) []string {
	var tags []string
	if len(p.Tags) > 0 {
		_ = json.Unmarshal(p.Tags, &tags)
	}
	return tags
}
