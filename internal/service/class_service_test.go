package service

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/amirulmuuminin/tahfidz-exam-api/internal/models"
	appErrors "github.com/amirulmuuminin/tahfidz-exam-api/pkg/errors"
)

type memClassRepo struct {
	classes map[string]models.Class
}

func (m *memClassRepo) List(ctx context.Context, filter models.ClassFilter) ([]models.Class, int, error) {
	var out []models.Class
	for _, c := range m.classes {
		out = append(out, c)
	}
	return out, len(out), nil
}

func (m *memClassRepo) FindByID(ctx context.Context, id string) (*models.Class, error) {
	if c, ok := m.classes[id]; ok {
		return &c, nil
	}
	return nil, sql.ErrNoRows
}

func (m *memClassRepo) Create(ctx context.Context, class *models.Class) error {
	if m.classes == nil {
		m.classes = map[string]models.Class{}
	}
	if class.ID == "" {
		class.ID = "c-new"
	}
	m.classes[class.ID] = *class
	return nil
}

func (m *memClassRepo) Update(ctx context.Context, class *models.Class) error {
	m.classes[class.ID] = *class
	return nil
}

func (m *memClassRepo) Delete(ctx context.Context, id string) error {
	delete(m.classes, id)
	return nil
}

func TestClassServiceCreateValidatesSchedule(t *testing.T) {
	svc := NewClassService(&memClassRepo{}, nil, nil)

	cases := []struct {
		name     string
		schedule map[string][]string
	}{
		{"unknown weekday", map[string][]string{"sabtu": {"Jam ke-1"}}},
		{"unknown period", map[string][]string{"senin": {"Jam ke-9"}}},
		{"period past tuesday cap", map[string][]string{"selasa": {"Jam ke-5"}}},
		{"period past wednesday cap", map[string][]string{"rabu": {"Jam ke-5"}}},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, err := svc.Create(context.Background(), SaveClassRequest{Name: "Halaqa A", Schedule: tc.schedule})
			require.Error(t, err)
			assert.Equal(t, appErrors.ErrValidation.Code, appErrors.FromError(err).Code)
		})
	}
}

func TestClassServiceCreateAndUpdate(t *testing.T) {
	repo := &memClassRepo{}
	svc := NewClassService(repo, nil, nil)

	class, err := svc.Create(context.Background(), SaveClassRequest{
		Name:     "Halaqa A",
		Schedule: map[string][]string{"senin": {"Jam ke-1", "Jam ke-2"}, "jumat": {"Jam ke-5"}},
	})
	require.NoError(t, err)
	assert.NotEmpty(t, class.ID)

	parsed := parseWeeklySchedule(class.Schedule)
	assert.Equal(t, []string{"Jam ke-1", "Jam ke-2"}, periodsFor(parsed, models.DaySenin))

	updated, err := svc.Update(context.Background(), class.ID, SaveClassRequest{
		Name:     "Halaqa B",
		Schedule: map[string][]string{"kamis": {"Jam ke-3"}},
	})
	require.NoError(t, err)
	assert.Equal(t, "Halaqa B", updated.Name)

	_, err = svc.Update(context.Background(), "missing", SaveClassRequest{
		Name:     "X",
		Schedule: map[string][]string{"senin": {"Jam ke-1"}},
	})
	require.Error(t, err)
	assert.Equal(t, appErrors.ErrNotFound.Code, appErrors.FromError(err).Code)
}
