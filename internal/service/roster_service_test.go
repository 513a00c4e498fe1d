package service

import (
	"context"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hard4j/bvp-attendance-api/internal/models"
	appErrors "github.com/hard4j/bvp-attendance-api/pkg/errors"
)

func rolls(students []models.Student) []string {
	out := make([]string, 0, len(students))
	for _, st := range students {
		out = append(out, st.RollNo)
	}
	return out
}

func TestRosterResolve(t *testing.T) {
	f := newAttendanceFixture()
	svc := NewRosterService(f.batches, nil)
	ctx := context.Background()

	all, err := svc.Resolve(ctx, f.batchID, models.LectureTheory, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R2", "R3"}, rolls(all))

	group, err := svc.Resolve(ctx, f.batchID, models.LectureTutorial, intPtr(1))
	require.NoError(t, err)
	assert.Equal(t, []string{"R1", "R3"}, rolls(group))

	empty, err := svc.Resolve(ctx, f.batchID, models.LecturePractical, intPtr(7))
	require.NoError(t, err)
	assert.Empty(t, empty)
}

func TestRosterResolveErrors(t *testing.T) {
	f := newAttendanceFixture()
	svc := NewRosterService(f.batches, nil)
	ctx := context.Background()

	_, err := svc.Resolve(ctx, f.batchID, models.LecturePractical, nil)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Resolve(ctx, f.batchID, models.LectureType("LAB"), nil)
	assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)

	_, err = svc.Resolve(ctx, uuid.NewString(), models.LectureTheory, nil)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}

func TestFilterRosterDoesNotAlias(t *testing.T) {
	students := []models.Student{{RollNo: "A"}, {RollNo: "B"}}
	out := FilterRoster(students, models.LectureTheory, nil)
	out[0].RollNo = "Z"
	assert.Equal(t, "A", students[0].RollNo)
	assert.Empty(t, FilterRoster(students, models.LecturePractical, nil))
}
