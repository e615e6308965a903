package models

import "time"

// ResourceKind discriminates how a data resource can be provisioned.
type ResourceKind string

const (
	// ResourceTable is vector data already materialized as a Postgres
	// table, either ingested from a shapefile or loaded directly. It is
	// provisioned as a GeoServer feature type over that table.
	ResourceTable ResourceKind = "table"
	// ResourcePassThrough is a resource hosted by an external feature
	// service. It is already reachable and nothing is provisioned for it.
	ResourcePassThrough ResourceKind = "passthrough"
	// ResourceRaster is a single grid/image file held in object storage.
	// It is staged into the GeoServer data directory and provisioned as a
	// coverage store plus coverage layer.
	ResourceRaster ResourceKind = "raster"
)

// DataResource describes a stored data resource and the metadata needed to
// provision it. Only the fields matching Kind are populated.
type DataResource struct {
	DataID string       `json:"data_id" gorm:"column:data_id;primaryKey"`
	Kind   ResourceKind `json:"kind" gorm:"not null"`

	// Table-backed resources
	TableName string `json:"table_name,omitempty" gorm:"column:table_name"`

	// Raster resources
	FileBucket string `json:"file_bucket,omitempty" gorm:"column:file_bucket"`
	FileKey    string `json:"file_key,omitempty" gorm:"column:file_key"`
	FileName   string `json:"file_name,omitempty" gorm:"column:file_name"`

	// Spatial metadata
	EPSGCode int     `json:"epsg_code,omitempty" gorm:"column:epsg_code"`
	CRS      string  `json:"crs,omitempty" gorm:"column:crs"`
	MinX     float64 `json:"min_x,omitempty" gorm:"column:min_x"`
	MaxX     float64 `json:"max_x,omitempty" gorm:"column:max_x"`
	MinY     float64 `json:"min_y,omitempty" gorm:"column:min_y"`
	MaxY     float64 `json:"max_y,omitempty" gorm:"column:max_y"`

	CreatedAt time.Time `json:"created_at"`
}
