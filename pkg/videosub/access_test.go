package videosub_test

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/ManikandanNRG/alx-ext-video-sub000/pkg/videosub"
)

func TestEvaluateAccessTable(t *testing.T) {
	ownerID := uuid.New()
	strangerID := uuid.New()

	readyRecord := &videosub.VideoRecord{
		ID:         uuid.New(),
		ArtifactID: "artifact-1",
		OwnerID:    ownerID,
		Status:     videosub.VideoStatusReady,
	}

	tests := []struct {
		name        string
		principal   videosub.Principal
		record      *videosub.VideoRecord
		wantAllowed bool
		wantReason  videosub.AccessReason
	}{
		{
			name:        "owner with submit capability",
			principal:   videosub.Principal{UserID: ownerID, CanSubmit: true},
			record:      readyRecord,
			wantAllowed: true,
			wantReason:  videosub.AccessReasonOwner,
		},
		{
			name:        "owner without submit capability is not owner-access",
			principal:   videosub.Principal{UserID: ownerID},
			record:      readyRecord,
			wantAllowed: false,
			wantReason:  videosub.AccessReasonForbidden,
		},
		{
			name:        "grader on someone else's video",
			principal:   videosub.Principal{UserID: strangerID, CanGrade: true},
			record:      readyRecord,
			wantAllowed: true,
			wantReason:  videosub.AccessReasonGrader,
		},
		{
			name:        "admin on someone else's video",
			principal:   videosub.Principal{UserID: strangerID, IsAdmin: true},
			record:      readyRecord,
			wantAllowed: true,
			wantReason:  videosub.AccessReasonAdmin,
		},
		{
			name:        "grader beats admin when both are set",
			principal:   videosub.Principal{UserID: strangerID, CanGrade: true, IsAdmin: true},
			record:      readyRecord,
			wantAllowed: true,
			wantReason:  videosub.AccessReasonGrader,
		},
		{
			name:        "stranger with no capabilities",
			principal:   videosub.Principal{UserID: strangerID},
			record:      readyRecord,
			wantAllowed: false,
			wantReason:  videosub.AccessReasonForbidden,
		},
		{
			name:        "missing record",
			principal:   videosub.Principal{UserID: ownerID, CanSubmit: true},
			record:      nil,
			wantAllowed: false,
			wantReason:  videosub.AccessReasonNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decision := videosub.Evaluate(tt.principal, videosub.AccessClaim{}, tt.record)
			assert.Equal(t, tt.wantAllowed, decision.Allowed)
			assert.Equal(t, tt.wantReason, decision.Reason)
		})
	}
}

func TestEvaluateFullMatrix(t *testing.T) {
	ownerID := uuid.New()
	now := time.Now()

	principals := map[string]videosub.Principal{
		"owner":    {UserID: ownerID, CanSubmit: true},
		"grader":   {UserID: uuid.New(), CanGrade: true},
		"admin":    {UserID: uuid.New(), IsAdmin: true},
		"stranger": {UserID: uuid.New()},
	}
	states := map[string]struct {
		status    videosub.VideoStatus
		deletedAt *time.Time
	}{
		"ready":   {status: videosub.VideoStatusReady},
		"pending": {status: videosub.VideoStatusPending},
		"deleted": {status: videosub.VideoStatusDeleted, deletedAt: &now},
	}
	// Only ready grants access, and only to a capability-bearing role.
	allowed := map[string]bool{
		"owner/ready": true, "grader/ready": true, "admin/ready": true,
	}

	for pname, p := range principals {
		for sname, s := range states {
			record := &videosub.VideoRecord{
				ID:         uuid.New(),
				ArtifactID: "artifact-1",
				OwnerID:    ownerID,
				Status:     s.status,
				DeletedAt:  s.deletedAt,
			}
			decision := videosub.Evaluate(p, videosub.AccessClaim{}, record)
			assert.Equal(t, allowed[pname+"/"+sname], decision.Allowed, "%s on %s", pname, sname)
		}
	}
}

func TestEvaluateNotReadyBeatsRole(t *testing.T) {
	ownerID := uuid.New()
	record := &videosub.VideoRecord{
		ID:         uuid.New(),
		ArtifactID: "artifact-1",
		OwnerID:    ownerID,
		Status:     videosub.VideoStatusUploading,
	}

	// Even an admin gets not_ready; readiness is checked before roles.
	decision := videosub.Evaluate(videosub.Principal{UserID: uuid.New(), IsAdmin: true}, videosub.AccessClaim{}, record)
	assert.False(t, decision.Allowed)
	assert.Equal(t, videosub.AccessReasonNotReady, decision.Reason)
	assert.Equal(t, videosub.VideoStatusUploading, decision.Status)
}

func TestEvaluateIdentityMismatch(t *testing.T) {
	ownerID := uuid.New()
	record := &videosub.VideoRecord{
		ID:         uuid.New(),
		ArtifactID: "artifact-1",
		OwnerID:    ownerID,
		Status:     videosub.VideoStatusReady,
	}

	decision := videosub.Evaluate(
		videosub.Principal{UserID: ownerID, CanSubmit: true},
		videosub.AccessClaim{ArtifactID: "artifact-2"},
		record)
	assert.False(t, decision.Allowed)
	assert.Equal(t, videosub.AccessReasonIdentityMismatch, decision.Reason)
}

func TestEvaluateDeletedRecordIsNotFound(t *testing.T) {
	now := time.Now()
	record := &videosub.VideoRecord{
		ID:        uuid.New(),
		OwnerID:   uuid.New(),
		Status:    videosub.VideoStatusDeleted,
		DeletedAt: &now,
	}

	decision := videosub.Evaluate(videosub.Principal{UserID: record.OwnerID, CanSubmit: true}, videosub.AccessClaim{}, record)
	assert.False(t, decision.Allowed)
	// Deletion masks existence; callers cannot distinguish deleted from
	// never uploaded.
	assert.Equal(t, videosub.AccessReasonNotFound, decision.Reason)
}
