package cause

import "fmt"

// Cause is a sealed interface describing one trigger event.
// Only the variants declared in this package implement it.
type Cause interface {
	cause() // Sealed

	// Kind returns the variant tag used in persisted records.
	Kind() Kind
}

// Kind tags a Cause variant.
type Kind string

const (
	KindManual       Kind = "manual"
	KindUser         Kind = "user"
	KindTimer        Kind = "timer"
	KindRemote       Kind = "remote"
	KindSCM          Kind = "scm"
	KindUpstream     Kind = "upstream"
	KindDeeplyNested Kind = "deeply_nested"
)

// Kinds lists every variant tag in declaration order.
var Kinds = []Kind{
	KindManual,
	KindUser,
	KindTimer,
	KindRemote,
	KindSCM,
	KindUpstream,
	KindDeeplyNested,
}

// ManualCause is a run started by hand without an associated identity.
type ManualCause struct {
	Note string
}

func (ManualCause) cause()     {}
func (ManualCause) Kind() Kind { return KindManual }

// UserIDCause is a run started by an identified user.
//
// The user id has three states: absent (anonymous), the empty string
// (the privileged system actor), or a concrete id to be resolved.
type UserIDCause struct {
	userID *string
}

func (UserIDCause) cause()     {}
func (UserIDCause) Kind() Kind { return KindUser }

// UserCause returns a UserIDCause for the given user id.
func UserCause(id string) UserIDCause {
	return UserIDCause{userID: &id}
}

// SystemUserCause returns a UserIDCause for the system actor.
func SystemUserCause() UserIDCause {
	return UserCause(SystemUserID)
}

// AnonymousUserCause returns a UserIDCause with no user id.
func AnonymousUserCause() UserIDCause {
	return UserIDCause{}
}

// SystemUserID is the reserved id of the system actor.
const SystemUserID = ""

// UserID returns the stored id and whether one is present.
func (c UserIDCause) UserID() (string, bool) {
	if c.userID == nil {
		return "", false
	}
	return *c.userID, true
}

// IsSystem reports whether the cause names the system actor.
func (c UserIDCause) IsSystem() bool {
	id, ok := c.UserID()
	return ok && id == SystemUserID
}

// TimerCause is a run started by a periodic schedule.
type TimerCause struct{}

func (TimerCause) cause()     {}
func (TimerCause) Kind() Kind { return KindTimer }

// RemoteCause is a run started through the remote trigger endpoint.
type RemoteCause struct {
	Addr string
	Note string
}

func (RemoteCause) cause()     {}
func (RemoteCause) Kind() Kind { return KindRemote }

// SCMCause is a run started by a detected source change.
type SCMCause struct {
	Note string
}

func (SCMCause) cause()     {}
func (SCMCause) Kind() Kind { return KindSCM }

// DeeplyNestedCause marks where a nested chain was severed by the policy.
type DeeplyNestedCause struct{}

func (DeeplyNestedCause) cause()     {}
func (DeeplyNestedCause) Kind() Kind { return KindDeeplyNested }

// UpstreamCause is a run started by the completion of another run.
//
// It holds a snapshot of the upstream run's chain taken at trigger time.
// Fields are unexported so the snapshot cannot be altered after
// construction; use Policy.Upstream or NewUpstreamCause to build one.
type UpstreamCause struct {
	project string
	number  int
	url     string
	causes  Chain
}

func (UpstreamCause) cause()     {}
func (UpstreamCause) Kind() Kind { return KindUpstream }

// Project returns the full name of the upstream project.
func (c UpstreamCause) Project() string { return c.project }

// Number returns the upstream build number.
func (c UpstreamCause) Number() int { return c.number }

// URL returns the upstream project URL path.
func (c UpstreamCause) URL() string { return c.url }

// Causes returns the snapshot of the upstream run's chain.
func (c UpstreamCause) Causes() Chain { return c.causes }

// PointsTo reports whether the cause references the given build.
func (c UpstreamCause) PointsTo(project string, number int) bool {
	return c.project == project && c.number == number
}

// PointsToProject reports whether the cause references any build of project.
func (c UpstreamCause) PointsToProject(project string) bool {
	return c.project == project
}

// String returns "project#number".
func (c UpstreamCause) String() string {
	return fmt.Sprintf("%s#%d", c.project, c.number)
}

func (c UpstreamCause) key() buildKey {
	return buildKey{project: c.project, number: c.number}
}

func (c UpstreamCause) withCauses(ch Chain) UpstreamCause {
	c.causes = ch
	return c
}

// ProjectURL returns the URL path of a project, e.g. "job/a/".
func ProjectURL(project string) string {
	return "job/" + project + "/"
}

// RestoreUpstream rebuilds an UpstreamCause from persisted fields.
//
// No policy is applied; records written under looser bounds are kept as they
// are. Callers that need bounded output pass the result through Policy.Apply.
func RestoreUpstream(project string, number int, url string, causes Chain) (UpstreamCause, error) {
	if err := validateRef(project, number); err != nil {
		return UpstreamCause{}, err
	}
	if url == "" {
		url = ProjectURL(project)
	}
	return UpstreamCause{
		project: project,
		number:  number,
		url:     url,
		causes:  causes,
	}, nil
}

// buildKey identifies one run.
type buildKey struct {
	project string
	number  int
}
