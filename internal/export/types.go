package export

// ExportRequest is the body of an EDL export. Without OutputDir the list
// is returned inline.
type ExportRequest struct {
	Format     string  `json:"format"`
	Title      string  `json:"title,omitempty"`
	TrackIndex *int    `json:"track_index,omitempty"`
	FrameRate  float64 `json:"frame_rate,omitempty"`
	OutputDir  string  `json:"output_dir,omitempty"`
}

type ExportResponse struct {
	Status     string   `json:"status"`
	Format     string   `json:"format"`
	OutputPath string   `json:"output_path,omitempty"`
	EDL        string   `json:"edl,omitempty"`
	FrameRate  float64  `json:"frame_rate"`
	DropFrame  bool     `json:"drop_frame"`
	EventCount int      `json:"event_count"`
	Skipped    []string `json:"skipped"`
}
