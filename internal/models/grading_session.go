package models

import (
	"strings"
	"time"
)

// Grading session states. The session moves no_submission_selected ->
// submission_loaded -> editing -> saving -> saved, returning to
// submission_loaded for the next student or being discarded on exit.
const (
	SessionStateNoSubmissionSelected = "no_submission_selected"
	SessionStateSubmissionLoaded     = "submission_loaded"
	SessionStateEditing              = "editing"
	SessionStateSaving               = "saving"
	SessionStateSaved                = "saved"
)

// Save exit actions.
const (
	SaveActionStay = "stay"
	SaveActionNext = "next"
	SaveActionExit = "exit"
)

// RosterEntry is the session's snapshot of one submission in the roster.
// Filtering and search operate on this snapshot only; they never refetch.
type RosterEntry struct {
	StudentID   uint   `json:"student_id"`
	StudentName string `json:"student_name"`
	Status      string `json:"status"`
}

// ItemGrade is the working score of one item for the currently selected
// student. AutoScore keeps the Item Scorer's value so clearing a manual
// override restores it exactly.
type ItemGrade struct {
	Score          float64 `json:"score"`
	AutoScore      float64 `json:"auto_score"`
	ManualOverride bool    `json:"manual_override"`
}

// GradingSession is the teacher-side grading state for one activity. It has
// an explicit lifecycle: created when grading starts, stored under a TTL,
// deleted on exit. Nothing here is persisted to a submission before an
// explicit save.
type GradingSession struct {
	ID               string               `json:"id"`
	ActivityID       uint                 `json:"activity_id"`
	ClassID          uint                 `json:"class_id"`
	GraderID         uint                 `json:"grader_id"`
	State            string               `json:"state"`
	Roster           []RosterEntry        `json:"roster"`
	NameFilter       string               `json:"name_filter"`
	StatusFilter     string               `json:"status_filter"`
	CurrentStudentID uint                 `json:"current_student_id"`
	ItemGrades       map[string]ItemGrade `json:"item_grades"`
	Answers          map[string]string    `json:"answers"`
	Feedback         string               `json:"feedback"`
	CreatedAt        time.Time            `json:"created_at"`
}

// FilteredRoster applies the session's name substring and status filters to
// the roster snapshot. Pure projection.
func (s GradingSession) FilteredRoster() []RosterEntry {
	name := strings.ToLower(strings.TrimSpace(s.NameFilter))
	status := strings.TrimSpace(s.StatusFilter)

	filtered := make([]RosterEntry, 0, len(s.Roster))
	for _, entry := range s.Roster {
		if name != "" && !strings.Contains(strings.ToLower(entry.StudentName), name) {
			continue
		}
		if status != "" && entry.Status != status {
			continue
		}
		filtered = append(filtered, entry)
	}
	return filtered
}

// Total is the live aggregate: the sum of all current per-item scores,
// rounded to one decimal place.
func (s GradingSession) Total() float64 {
	var total float64
	for _, grade := range s.ItemGrades {
		total += grade.Score
	}
	return RoundGrade(total)
}

// ScoresMap returns the per-item scores to persist on save.
func (s GradingSession) ScoresMap() map[string]float64 {
	scores := make(map[string]float64, len(s.ItemGrades))
	for itemID, grade := range s.ItemGrades {
		scores[itemID] = grade.Score
	}
	return scores
}

// NextStudentID returns the student after the current one in the filtered,
// ordered roster. ok is false when the current student is last or absent,
// in which case "next" degrades to "exit".
func (s GradingSession) NextStudentID() (uint, bool) {
	roster := s.FilteredRoster()
	for index, entry := range roster {
		if entry.StudentID == s.CurrentStudentID && index+1 < len(roster) {
			return roster[index+1].StudentID, true
		}
	}
	return 0, false
}

// MarkRosterStatus updates the roster snapshot after a save so filtering
// stays consistent without a refetch.
func (s *GradingSession) MarkRosterStatus(studentID uint, status string) {
	for index := range s.Roster {
		if s.Roster[index].StudentID == studentID {
			s.Roster[index].Status = status
			return
		}
	}
}

// Saving reports whether a save is in flight; it gates re-entrant saves.
func (s GradingSession) Saving() bool {
	return s.State == SessionStateSaving
}
