package models

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func sessionWithRoster() GradingSession {
	return GradingSession{
		Roster: []RosterEntry{
			{StudentID: 1, StudentName: "Ana Souza", Status: SubmissionStatusAwaiting},
			{StudentID: 2, StudentName: "Bruno Lima", Status: SubmissionStatusCorrected},
			{StudentID: 3, StudentName: "Carla Anjos", Status: SubmissionStatusAwaiting},
		},
	}
}

func TestFilteredRosterByName(t *testing.T) {
	session := sessionWithRoster()
	session.NameFilter = "an"

	filtered := session.FilteredRoster()
	require.Len(t, filtered, 2)
	require.Equal(t, uint(1), filtered[0].StudentID)
	require.Equal(t, uint(3), filtered[1].StudentID)
}

func TestFilteredRosterByStatus(t *testing.T) {
	session := sessionWithRoster()
	session.StatusFilter = SubmissionStatusCorrected

	filtered := session.FilteredRoster()
	require.Len(t, filtered, 1)
	require.Equal(t, uint(2), filtered[0].StudentID)
}

func TestFilteredRosterCombined(t *testing.T) {
	session := sessionWithRoster()
	session.NameFilter = "lima"
	session.StatusFilter = SubmissionStatusAwaiting

	require.Empty(t, session.FilteredRoster())

	session.StatusFilter = SubmissionStatusCorrected
	filtered := session.FilteredRoster()
	require.Len(t, filtered, 1)
	require.Equal(t, "Bruno Lima", filtered[0].StudentName)
}

func TestTotalRoundsToOneDecimal(t *testing.T) {
	session := GradingSession{
		ItemGrades: map[string]ItemGrade{
			"q1": {Score: 1.11},
			"q2": {Score: 2.22},
		},
	}

	require.Equal(t, 3.3, session.Total())
}

func TestNextStudentIDFollowsFilteredOrder(t *testing.T) {
	session := sessionWithRoster()
	session.CurrentStudentID = 1

	next, ok := session.NextStudentID()
	require.True(t, ok)
	require.Equal(t, uint(2), next)

	// With a filter hiding student 2, next jumps to student 3.
	session.StatusFilter = SubmissionStatusAwaiting
	next, ok = session.NextStudentID()
	require.True(t, ok)
	require.Equal(t, uint(3), next)
}

func TestNextStudentIDOnLast(t *testing.T) {
	session := sessionWithRoster()
	session.CurrentStudentID = 3

	_, ok := session.NextStudentID()
	require.False(t, ok)
}

func TestMarkRosterStatus(t *testing.T) {
	session := sessionWithRoster()
	session.MarkRosterStatus(1, SubmissionStatusCorrected)

	require.Equal(t, SubmissionStatusCorrected, session.Roster[0].Status)
	require.Equal(t, SubmissionStatusAwaiting, session.Roster[2].Status)
}

func TestSaving(t *testing.T) {
	session := GradingSession{State: SessionStateSaving}
	require.True(t, session.Saving())

	session.State = SessionStateEditing
	require.False(t, session.Saving())
}
