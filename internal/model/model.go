package model

// Status is the service-side task state. The numeric values come from the
// service and only identify a state; they carry no ordering.
type Status int

const (
	StatusPending     Status = 0
	StatusDownloading Status = 1
	StatusCompleted   Status = 2
	StatusError       Status = -1
	StatusCancelled   Status = -2
)

// Known reports whether s is one of the five states this client understands.
func (s Status) Known() bool {
	switch s {
	case StatusPending, StatusDownloading, StatusCompleted, StatusError, StatusCancelled:
		return true
	default:
		return false
	}
}

// Class is a stable lowercase identifier for s ("unknown" for values this
// client does not recognize).
func (s Status) Class() string {
	switch s {
	case StatusPending:
		return "pending"
	case StatusDownloading:
		return "downloading"
	case StatusCompleted:
		return "completed"
	case StatusError:
		return "error"
	case StatusCancelled:
		return "cancelled"
	default:
		return "unknown"
	}
}

func (s Status) String() string {
	switch s {
	case StatusPending:
		return "Pending"
	case StatusDownloading:
		return "Downloading"
	case StatusCompleted:
		return "Completed"
	case StatusError:
		return "Error"
	case StatusCancelled:
		return "Cancelled"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether the task finished (successfully or not) and can be restarted or deleted.
func (s Status) IsTerminal() bool {
	return s == StatusCompleted || s == StatusError || s == StatusCancelled
}

type Task struct {
	ID         string `json:"id"`
	URL        string `json:"url"`
	Type       string `json:"type"`
	Name       string `json:"name"`
	Language   string `json:"language"`
	Status     Status `json:"status"`
	StatusText string `json:"status_text"`

	// Overwrite is set by the service for restart-with-overwrite runs.
	Overwrite bool      `json:"overwrite,omitempty"`
	CreatedAt Timestamp `json:"created_at,omitempty"`
	UpdatedAt Timestamp `json:"updated_at,omitempty"`
}

// Label returns the server-supplied status text, or the enum name when the
// service did not send one.
func (t Task) Label() string {
	if t.StatusText != "" {
		return t.StatusText
	}
	return t.Status.String()
}

// Snapshot is one fetch of the service task registry.
type Snapshot struct {
	Tasks      []Task `json:"tasks"`
	CurrentLog string `json:"current_log,omitempty"`
}

// HasLog reports whether the snapshot carries an activity excerpt to display.
func (s Snapshot) HasLog() bool { return s.CurrentLog != "" }
