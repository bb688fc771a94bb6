package videosub

// AccessClaim is what the caller asserts about the resource it wants.
type AccessClaim struct {
	// ArtifactID is the artifact the caller believes is bound to the
	// submission. Empty means no claim is made.
	ArtifactID string
}

// Evaluate runs the access decision table for a playback request. It is a
// pure function of the facts passed in: no I/O, no caching, re-run on every
// request. Rules are evaluated top to bottom; the first match wins.
func Evaluate(p Principal, claim AccessClaim, record *VideoRecord) AccessDecision {
	if record == nil || record.DeletedAt != nil {
		return AccessDecision{Allowed: false, Reason: AccessReasonNotFound}
	}
	if claim.ArtifactID != "" && claim.ArtifactID != record.ArtifactID {
		return AccessDecision{Allowed: false, Reason: AccessReasonIdentityMismatch}
	}
	if record.Status != VideoStatusReady {
		return AccessDecision{Allowed: false, Reason: AccessReasonNotReady, Status: record.Status}
	}
	if p.UserID == record.OwnerID && p.CanSubmit {
		return AccessDecision{Allowed: true, Reason: AccessReasonOwner}
	}
	if p.CanGrade {
		return AccessDecision{Allowed: true, Reason: AccessReasonGrader}
	}
	if p.IsAdmin {
		return AccessDecision{Allowed: true, Reason: AccessReasonAdmin}
	}
	return AccessDecision{Allowed: false, Reason: AccessReasonForbidden}
}
