package model

// Draft holds a user's autosaved answers for an exam, keyed by question index.
type Draft struct {
	ExamID  string         `json:"exam_id"`
	UserID  string         `json:"user_id"`
	Answers map[int]string `json:"answers"`
}

// AnswerList expands the draft into an index-aligned answer slice of length n.
func (d *Draft) AnswerList(n int) []string {
	out := make([]string, n)
	for i, a := range d.Answers {
		if i >= 0 && i < n {
			out[i] = a
		}
	}
	return out
}

// DraftAnswer is queued for persistence on every autosave.
type DraftAnswer struct {
	ExamID string `json:"exam_id"`
	UserID string `json:"user_id"`
	Index  int    `json:"index"`
	Answer string `json:"answer"`
}

// TokenizeRequest is the payload for the markup preview endpoint.
type TokenizeRequest struct {
	Text string `json:"text" binding:"max=20000"`
}

// DraftRef identifies one user's drafts for one exam.
type DraftRef struct {
	ExamID string
	UserID string
}
