package model

import (
	"time"

	geom "github.com/peterstace/simplefeatures/geom"
	"gorm.io/datatypes"
)

////////////////////////
// DATABASE STRUCTURES //
////////////////////////

// DatabaseModels is a list of all the structs exported here which represent tables in the database schema
var DatabaseModels = []interface{}{
	&Snapshot{},
	&MemoryPoint{},
}

////////////////////////
// JOURNAL MODELS
////////////////////////

// Snapshot holds the full memory collection under one key, exactly as it is loaded back
type Snapshot struct {
	Key       string         `json:"key" gorm:"column:snapshot_key;primaryKey;size:128"`
	Data      datatypes.JSON `json:"data"`
	Count     int            `json:"count"`
	UpdatedAt time.Time      `json:"updatedAt" gorm:"autoUpdateTime"`
}

func (*Snapshot) TableName() string {
	return "snapshots"
}

// MemoryPoint is a queryable projection of one memory in a snapshot.
// Rows are rewritten on every save and never read back into the journal.
type MemoryPoint struct {
	ID           uint           `json:"id" gorm:"primarykey;autoIncrement;"`
	SnapshotKey  string         `json:"snapshotKey" gorm:"size:128;index:idx_memorypoint_snapshot_ordinal,priority:1"`
	Ordinal      int            `json:"ordinal" gorm:"index:idx_memorypoint_snapshot_ordinal,priority:2"`
	MemoryID     string         `json:"memoryId" gorm:"size:64;index:idx_memorypoint_memory_id"`
	LocationName string         `json:"locationName" gorm:"size:255"`
	VisitedOn    time.Time      `json:"visitedOn" gorm:"index:idx_memorypoint_visited_on"`
	Position     geom.Point     `json:"position"` // EPSG:3857
	Tags         datatypes.JSON `json:"tags"`
}

func (*MemoryPoint) TableName() string {
	return "memory_points"
}
