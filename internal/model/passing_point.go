package model

// PassingPoint is an entry of the course gallery. Photo and thumbnail are
// stored as paths only.
type PassingPoint struct {
	ID                int64    `json:"id"`
	PointName         string   `json:"point_name"`
	Description       *string  `json:"description"`
	DistanceFromStart *float64 `json:"distance_from_start"`
	Location          *string  `json:"location"`
	PhotoPath         *string  `json:"photo_path"`
	ThumbnailPath     *string  `json:"thumbnail_path"`
	DisplayOrder      int      `json:"display_order"`
}
