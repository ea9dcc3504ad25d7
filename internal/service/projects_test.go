package service

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/golang/mock/gomock"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/pribylovaa/go-site-generator/internal/models"
	"github.com/pribylovaa/go-site-generator/internal/storage"
)

func strPtr(s string) *string { return &s }

func TestListProjects_LimitClamp(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	uid := uuid.New()

	m.storage.EXPECT().ListProjects(gomock.Any(), uid, 20).Return([]models.Project{{ID: uuid.New()}}, nil)
	m.storage.EXPECT().ListProjects(gomock.Any(), uid, 100).Return(nil, nil)
	m.storage.EXPECT().ListProjects(gomock.Any(), uid, 5).Return(nil, nil)

	list, err := svc.ListProjects(context.Background(), uid, 0)
	require.NoError(t, err)
	require.Len(t, list, 1)

	_, err = svc.ListProjects(context.Background(), uid, 1000)
	require.NoError(t, err)

	_, err = svc.ListProjects(context.Background(), uid, 5)
	require.NoError(t, err)
}

func TestCreateProject_SanitizesHTML(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	uid := uuid.New()

	m.storage.EXPECT().CreateProject(gomock.Any(), gomock.Any()).
		DoAndReturn(func(_ context.Context, p *models.Project) (*models.Project, error) {
			require.Equal(t, uid, p.UserID)
			require.NotContains(t, p.HTMLCode, "<script")
			require.Contains(t, p.HTMLCode, "<h1>Hi</h1>")
			require.Equal(t, "landing", p.Prompt)
			out := *p
			out.ID = uuid.New()
			return &out, nil
		})

	p, err := svc.CreateProject(context.Background(), uid, ProjectInput{
		HTMLCode: strPtr(`<h1>Hi</h1><script>alert(1)</script>`),
		Prompt:   strPtr(" landing "),
	})
	require.NoError(t, err)
	require.NotEqual(t, uuid.Nil, p.ID)
}

func TestCreateProject_Validation(t *testing.T) {
	t.Parallel()

	svc, _, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	tcs := []struct {
		name string
		in   ProjectInput
	}{
		{"no_html", ProjectInput{}},
		{"blank_html", ProjectInput{HTMLCode: strPtr("  ")}},
		{"html_too_big", ProjectInput{HTMLCode: strPtr(strings.Repeat("a", 1025))}},
		{"prompt_too_long", ProjectInput{HTMLCode: strPtr("<p>x</p>"), Prompt: strPtr(strings.Repeat("a", 2001))}},
	}

	for _, tc := range tcs {
		_, err := svc.CreateProject(context.Background(), uuid.New(), tc.in)
		require.ErrorIs(t, err, ErrInvalidArgument, tc.name)
	}
}

func TestProject_OwnerScoped(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	uid, id := uuid.New(), uuid.New()

	m.storage.EXPECT().ProjectByID(gomock.Any(), uid, id).Return(nil, storage.ErrNotFound)
	_, err := svc.Project(context.Background(), uid, id)
	require.ErrorIs(t, err, ErrNotFound)

	m.storage.EXPECT().DeleteProject(gomock.Any(), uid, id).Return(storage.ErrNotFound)
	require.ErrorIs(t, svc.DeleteProject(context.Background(), uid, id), ErrNotFound)

	m.storage.EXPECT().DeleteProject(gomock.Any(), uid, id).Return(nil)
	require.NoError(t, svc.DeleteProject(context.Background(), uid, id))

	m.storage.EXPECT().ProjectByID(gomock.Any(), uid, id).Return(nil, errors.New("db down"))
	_, err = svc.Project(context.Background(), uid, id)
	require.ErrorIs(t, err, ErrInternal)
}

func TestUpdateProject(t *testing.T) {
	t.Parallel()

	svc, m, ctrl := newServiceWithMocks(t)
	defer ctrl.Finish()

	uid, id := uuid.New(), uuid.New()

	_, err := svc.UpdateProject(context.Background(), uid, id, ProjectInput{})
	require.ErrorIs(t, err, ErrInvalidArgument)

	m.storage.EXPECT().UpdateProject(gomock.Any(), uid, id, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ uuid.UUID, upd storage.ProjectUpdate) (*models.Project, error) {
			require.Nil(t, upd.HTMLCode)
			require.NotNil(t, upd.Prompt)
			require.Equal(t, "new prompt", *upd.Prompt)
			return &models.Project{ID: id, Prompt: *upd.Prompt}, nil
		})

	p, err := svc.UpdateProject(context.Background(), uid, id, ProjectInput{Prompt: strPtr("new prompt")})
	require.NoError(t, err)
	require.Equal(t, "new prompt", p.Prompt)

	m.storage.EXPECT().UpdateProject(gomock.Any(), uid, id, gomock.Any()).
		DoAndReturn(func(_ context.Context, _, _ uuid.UUID, upd storage.ProjectUpdate) (*models.Project, error) {
			require.Equal(t, `<a href="#">x</a>`, *upd.HTMLCode)
			return nil, storage.ErrNotFound
		})

	_, err = svc.UpdateProject(context.Background(), uid, id, ProjectInput{HTMLCode: strPtr(`<a href="javascript:x()">x</a>`)})
	require.ErrorIs(t, err, ErrNotFound)
}
