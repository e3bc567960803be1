package types

// User is an enrollment record. The digest service reads enrollment flags
// and the stored playlist reference, and writes back ReleaseRadarID when a
// playlist is created for the first time.
type User struct {
	Email        string `json:"email" dynamodbav:"email"`
	UserID       string `json:"userId" dynamodbav:"userId"`
	RefreshToken string `json:"refreshToken" dynamodbav:"refreshToken"`

	// Active gates all processing; the per-feature flags additionally gate
	// each digest. A user must be Active and feature-enrolled to be picked up.
	Active             bool `json:"active" dynamodbav:"active"`
	ActiveWrapped      bool `json:"activeWrapped" dynamodbav:"activeWrapped"`
	ActiveReleaseRadar bool `json:"activeReleaseRadar" dynamodbav:"activeReleaseRadar"`

	// ReleaseRadarID is the reused weekly playlist, empty until first created.
	ReleaseRadarID string `json:"releaseRadarId,omitempty" dynamodbav:"releaseRadarId,omitempty"`

	UpdatedAt string `json:"updatedAt,omitempty" dynamodbav:"updatedAt,omitempty"`
}

// EnrolledWrapped reports whether the user should be processed by the
// monthly digest.
func (u User) EnrolledWrapped() bool { return u.Active && u.ActiveWrapped }

// EnrolledReleaseRadar reports whether the user should be processed by the
// weekly release scan.
func (u User) EnrolledReleaseRadar() bool { return u.Active && u.ActiveReleaseRadar }
