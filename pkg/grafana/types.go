package grafana

// PermissionLevel is a Grafana access tier attached to a folder or dashboard
// for a user, team, or role.
type PermissionLevel int64

const (
	PermissionView  PermissionLevel = 1
	PermissionEdit  PermissionLevel = 2
	PermissionAdmin PermissionLevel = 4
)

func (p PermissionLevel) String() string {
	switch p {
	case PermissionView:
		return "View"
	case PermissionEdit:
		return "Edit"
	case PermissionAdmin:
		return "Admin"
	default:
		return "Unknown"
	}
}

// User is a Grafana server user
type User struct {
	ID            int64  `json:"id"`
	Name          string `json:"name"`
	Login         string `json:"login"`
	Email         string `json:"email"`
	IsAdmin       bool   `json:"isAdmin"`
	IsDisabled    bool   `json:"isDisabled"`
	LastSeenAt    string `json:"lastSeenAt,omitempty"`
	LastSeenAtAge string `json:"lastSeenAtAge,omitempty"`
	AvatarURL     string `json:"avatarUrl,omitempty"`
}

// CreateUserCommand creates a server user via the admin API
type CreateUserCommand struct {
	Name     string `json:"name,omitempty"`
	Login    string `json:"login,omitempty"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

// CreateUserResult is the admin user-creation response
type CreateUserResult struct {
	ID      int64  `json:"id"`
	Message string `json:"message"`
}

// UpdateUserCommand updates user profile fields
type UpdateUserCommand struct {
	Name  string `json:"name,omitempty"`
	Login string `json:"login,omitempty"`
	Email string `json:"email,omitempty"`
	Theme string `json:"theme,omitempty"`
}

// Org is a Grafana organization
type Org struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// OrgUser is a user's membership within a Grafana organization
type OrgUser struct {
	OrgID  int64  `json:"orgId"`
	UserID int64  `json:"userId"`
	Email  string `json:"email"`
	Login  string `json:"login"`
	Role   string `json:"role"`
}

// UserOrg is one of the organizations a user belongs to
type UserOrg struct {
	OrgID int64  `json:"orgId"`
	Name  string `json:"name"`
	Role  string `json:"role"`
}

// AddOrgUserCommand adds a user to an organization by login or email
type AddOrgUserCommand struct {
	LoginOrEmail string `json:"loginOrEmail"`
	Role         string `json:"role"`
}

// UpdateOrgUserCommand changes a user's role within an organization
type UpdateOrgUserCommand struct {
	Role string `json:"role"`
}

// Team is a Grafana team, used by the console purely as an access-control
// unit gating folder permissions.
type Team struct {
	ID          int64  `json:"id"`
	OrgID       int64  `json:"orgId,omitempty"`
	Name        string `json:"name"`
	Email       string `json:"email,omitempty"`
	AvatarURL   string `json:"avatarUrl,omitempty"`
	MemberCount int64  `json:"memberCount,omitempty"`
}

// TeamSearchResult is the paginated response of the team search endpoint
type TeamSearchResult struct {
	TotalCount int64  `json:"totalCount"`
	Teams      []Team `json:"teams"`
	Page       int    `json:"page"`
	PerPage    int    `json:"perPage"`
}

// CreateTeamCommand creates a team
type CreateTeamCommand struct {
	Name  string `json:"name"`
	Email string `json:"email,omitempty"`
}

// CreateTeamResult is the team-creation response
type CreateTeamResult struct {
	TeamID  int64  `json:"teamId"`
	Message string `json:"message"`
}

// TeamMember is a user's membership in a team
type TeamMember struct {
	OrgID     int64  `json:"orgId"`
	TeamID    int64  `json:"teamId"`
	UserID    int64  `json:"userId"`
	Email     string `json:"email"`
	Login     string `json:"login"`
	AvatarURL string `json:"avatarUrl,omitempty"`
}

// Folder is a dashboard container, the unit of ACL granularity
type Folder struct {
	ID    int64  `json:"id"`
	UID   string `json:"uid"`
	Title string `json:"title"`
	URL   string `json:"url,omitempty"`
}

// CreateFolderCommand creates a folder
type CreateFolderCommand struct {
	UID   string `json:"uid,omitempty"`
	Title string `json:"title"`
}

// UpdateFolderCommand renames a folder
type UpdateFolderCommand struct {
	Title     string `json:"title"`
	Version   int64  `json:"version,omitempty"`
	Overwrite bool   `json:"overwrite"`
}

// Permission is one folder or dashboard ACL entry. Exactly one of UserID,
// TeamID, or Role identifies the grantee.
type Permission struct {
	ID         int64           `json:"id,omitempty"`
	FolderUID  string          `json:"folderUid,omitempty"`
	UserID     int64           `json:"userId,omitempty"`
	UserLogin  string          `json:"userLogin,omitempty"`
	TeamID     int64           `json:"teamId,omitempty"`
	Team       string          `json:"team,omitempty"`
	Role       string          `json:"role,omitempty"`
	Permission PermissionLevel `json:"permission"`
}

// SetPermissionsCommand replaces an item's ACL
type SetPermissionsCommand struct {
	Items []Permission `json:"items"`
}

// DashboardHit is a dashboard search result. An empty FolderUID means the
// dashboard lives in the default "General" folder.
type DashboardHit struct {
	ID          int64    `json:"id"`
	UID         string   `json:"uid"`
	Title       string   `json:"title"`
	URI         string   `json:"uri,omitempty"`
	URL         string   `json:"url,omitempty"`
	Slug        string   `json:"slug,omitempty"`
	Type        string   `json:"type,omitempty"`
	Tags        []string `json:"tags,omitempty"`
	IsStarred   bool     `json:"isStarred,omitempty"`
	FolderID    int64    `json:"folderId,omitempty"`
	FolderUID   string   `json:"folderUid,omitempty"`
	FolderTitle string   `json:"folderTitle,omitempty"`
	FolderURL   string   `json:"folderUrl,omitempty"`
}

// Dashboard is a full dashboard document with its metadata
type Dashboard struct {
	Dashboard map[string]interface{} `json:"dashboard"`
	Meta      DashboardMeta          `json:"meta"`
}

// DashboardMeta is the metadata envelope of a dashboard get
type DashboardMeta struct {
	IsFolder    bool   `json:"isFolder"`
	FolderID    int64  `json:"folderId"`
	FolderUID   string `json:"folderUid"`
	FolderTitle string `json:"folderTitle"`
	Slug        string `json:"slug"`
	URL         string `json:"url"`
	Version     int64  `json:"version"`
}

// SaveDashboardCommand creates or updates a dashboard
type SaveDashboardCommand struct {
	Dashboard map[string]interface{} `json:"dashboard"`
	FolderUID string                 `json:"folderUid,omitempty"`
	Message   string                 `json:"message,omitempty"`
	Overwrite bool                   `json:"overwrite"`
}

// SaveDashboardResult is the dashboard save response
type SaveDashboardResult struct {
	ID      int64  `json:"id"`
	UID     string `json:"uid"`
	URL     string `json:"url"`
	Status  string `json:"status"`
	Version int64  `json:"version"`
	Slug    string `json:"slug"`
}

// HealthStatus is the Grafana health response
type HealthStatus struct {
	Commit   string `json:"commit"`
	Database string `json:"database"`
	Version  string `json:"version"`
}
