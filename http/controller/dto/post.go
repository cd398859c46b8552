package dto

// SchedulePostRequest is the enqueue payload. imageUrl is the legacy field
// name older frontends still send; mediaUrl wins when both are present.
type SchedulePostRequest struct {
	Account  string `json:"account"`
	Caption  string `json:"caption"`
	MediaURL string `json:"mediaUrl"`
	ImageURL string `json:"imageUrl"`
	When     string `json:"when"`
}

func (r *SchedulePostRequest) ResolvedMediaURL() string {
	if r.MediaURL != "" {
		return r.MediaURL
	}
	return r.ImageURL
}
