package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestExamOpenAt(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	before := now.Add(-time.Hour)
	after := now.Add(time.Hour)

	tests := []struct {
		name string
		exam Exam
		want bool
	}{
		{"active unbounded", Exam{Status: ExamStatusActive}, true},
		{"draft never open", Exam{Status: ExamStatusDraft}, false},
		{"inactive never open", Exam{Status: ExamStatusInactive}, false},
		{"inside window", Exam{Status: ExamStatusActive, OpensAt: &before, ClosesAt: &after}, true},
		{"before window", Exam{Status: ExamStatusActive, OpensAt: &after}, false},
		{"after window", Exam{Status: ExamStatusActive, ClosesAt: &before}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.exam.OpenAt(now))
		})
	}
}

func TestValidOptionLabel(t *testing.T) {
	for _, label := range []string{"A", "B", "C", "D"} {
		assert.True(t, ValidOptionLabel(label))
	}
	for _, label := range []string{"", "E", "a", "AB"} {
		assert.False(t, ValidOptionLabel(label))
	}
}

func TestForStudentStripsCorrectOption(t *testing.T) {
	q := Question{
		Prompt:        "What is 2+2?",
		OptionA:       "3",
		OptionB:       "4",
		OptionC:       "5",
		OptionD:       "6",
		CorrectOption: "B",
		OrderNum:      1,
	}

	s := q.ForStudent()
	assert.Equal(t, q.Prompt, s.Prompt)
	assert.Len(t, s.Options, 4)
	assert.Equal(t, "4", s.Options[OptionB])
}
