package lifecycle

// Kind identifies a lifecycle message type.
type Kind int

// Events delivered to a Machine.
const (
	KindCreateService Kind = iota + 1
	KindServiceCreated
	KindStartService
	KindServiceRunning
	KindPauseService
	KindServicePaused
	KindContinueService
	KindServiceContinued
	KindRestartService
	KindStopService
	KindServiceStopped
	KindUnloadService
	KindServiceUnloaded
	KindServiceFault
)

// Notifications published by a Machine. KindServiceFault is both.
const (
	KindServiceStarting Kind = iota + 100
	KindServicePausing
	KindServiceContinuing
	KindServiceStopping
	KindServiceRestarting
	KindServiceRestarted
	KindServiceCompleted
)

var kindNames = map[Kind]string{
	KindCreateService:     "CreateService",
	KindServiceCreated:    "ServiceCreated",
	KindStartService:      "StartService",
	KindServiceRunning:    "ServiceRunning",
	KindPauseService:      "PauseService",
	KindServicePaused:     "ServicePaused",
	KindContinueService:   "ContinueService",
	KindServiceContinued:  "ServiceContinued",
	KindRestartService:    "RestartService",
	KindStopService:       "StopService",
	KindServiceStopped:    "ServiceStopped",
	KindUnloadService:     "UnloadService",
	KindServiceUnloaded:   "ServiceUnloaded",
	KindServiceFault:      "ServiceFault",
	KindServiceStarting:   "ServiceStarting",
	KindServicePausing:    "ServicePausing",
	KindServiceContinuing: "ServiceContinuing",
	KindServiceStopping:   "ServiceStopping",
	KindServiceRestarting: "ServiceRestarting",
	KindServiceRestarted:  "ServiceRestarted",
	KindServiceCompleted:  "ServiceCompleted",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}
	return "Unknown"
}

// Events returns every kind a Machine accepts as input.
func Events() []Kind {
	out := make([]Kind, 0, int(KindServiceFault))
	for k := KindCreateService; k <= KindServiceFault; k++ {
		out = append(out, k)
	}
	return out
}

// Message is a lifecycle event or notification. Messages are immutable values.
type Message interface {
	ServiceName() string
	Kind() Kind
}

// NewMessage builds the parameterless message of kind k addressed to name.
// It returns nil for KindServiceFault, which needs an error, and for unknown kinds.
func NewMessage(k Kind, name string) Message {
	switch k {
	case KindCreateService:
		return CreateService{Name: name}
	case KindServiceCreated:
		return ServiceCreated{Name: name}
	case KindStartService:
		return StartService{Name: name}
	case KindServiceRunning:
		return ServiceRunning{Name: name}
	case KindPauseService:
		return PauseService{Name: name}
	case KindServicePaused:
		return ServicePaused{Name: name}
	case KindContinueService:
		return ContinueService{Name: name}
	case KindServiceContinued:
		return ServiceContinued{Name: name}
	case KindRestartService:
		return RestartService{Name: name}
	case KindStopService:
		return StopService{Name: name}
	case KindServiceStopped:
		return ServiceStopped{Name: name}
	case KindUnloadService:
		return UnloadService{Name: name}
	case KindServiceUnloaded:
		return ServiceUnloaded{Name: name}
	case KindServiceStarting:
		return ServiceStarting{Name: name}
	case KindServicePausing:
		return ServicePausing{Name: name}
	case KindServiceContinuing:
		return ServiceContinuing{Name: name}
	case KindServiceStopping:
		return ServiceStopping{Name: name}
	case KindServiceRestarting:
		return ServiceRestarting{Name: name}
	case KindServiceRestarted:
		return ServiceRestarted{Name: name}
	case KindServiceCompleted:
		return ServiceCompleted{Name: name}
	default:
		return nil
	}
}

type (
	// CreateService asks the host to build the service.
	CreateService struct{ Name string }
	// ServiceCreated reports that the service handle exists.
	ServiceCreated struct{ Name string }
	// StartService asks a created service to start.
	StartService struct{ Name string }
	// ServiceRunning reports that start (or restart) completed.
	ServiceRunning struct{ Name string }
	PauseService   struct{ Name string }
	ServicePaused  struct{ Name string }
	// ContinueService resumes a paused service.
	ContinueService  struct{ Name string }
	ServiceContinued struct{ Name string }
	// RestartService stops the service, rebuilds it and starts it again.
	RestartService struct{ Name string }
	StopService    struct{ Name string }
	ServiceStopped struct{ Name string }
	// UnloadService releases a stopped service.
	UnloadService   struct{ Name string }
	ServiceUnloaded struct{ Name string }

	ServiceStarting   struct{ Name string }
	ServicePausing    struct{ Name string }
	ServiceContinuing struct{ Name string }
	ServiceStopping   struct{ Name string }
	ServiceRestarting struct{ Name string }
	ServiceRestarted  struct{ Name string }
	ServiceCompleted  struct{ Name string }
)

// ServiceFault reports that a lifecycle hook failed. Err is the original error.
type ServiceFault struct {
	Name string
	Err  error
}

func (m CreateService) ServiceName() string     { return m.Name }
func (m ServiceCreated) ServiceName() string    { return m.Name }
func (m StartService) ServiceName() string      { return m.Name }
func (m ServiceRunning) ServiceName() string    { return m.Name }
func (m PauseService) ServiceName() string      { return m.Name }
func (m ServicePaused) ServiceName() string     { return m.Name }
func (m ContinueService) ServiceName() string   { return m.Name }
func (m ServiceContinued) ServiceName() string  { return m.Name }
func (m RestartService) ServiceName() string    { return m.Name }
func (m StopService) ServiceName() string       { return m.Name }
func (m ServiceStopped) ServiceName() string    { return m.Name }
func (m UnloadService) ServiceName() string     { return m.Name }
func (m ServiceUnloaded) ServiceName() string   { return m.Name }
func (m ServiceFault) ServiceName() string      { return m.Name }
func (m ServiceStarting) ServiceName() string   { return m.Name }
func (m ServicePausing) ServiceName() string    { return m.Name }
func (m ServiceContinuing) ServiceName() string { return m.Name }
func (m ServiceStopping) ServiceName() string   { return m.Name }
func (m ServiceRestarting) ServiceName() string { return m.Name }
func (m ServiceRestarted) ServiceName() string  { return m.Name }
func (m ServiceCompleted) ServiceName() string  { return m.Name }

func (CreateService) Kind() Kind     { return KindCreateService }
func (ServiceCreated) Kind() Kind    { return KindServiceCreated }
func (StartService) Kind() Kind      { return KindStartService }
func (ServiceRunning) Kind() Kind    { return KindServiceRunning }
func (PauseService) Kind() Kind      { return KindPauseService }
func (ServicePaused) Kind() Kind     { return KindServicePaused }
func (ContinueService) Kind() Kind   { return KindContinueService }
func (ServiceContinued) Kind() Kind  { return KindServiceContinued }
func (RestartService) Kind() Kind    { return KindRestartService }
func (StopService) Kind() Kind       { return KindStopService }
func (ServiceStopped) Kind() Kind    { return KindServiceStopped }
func (UnloadService) Kind() Kind     { return KindUnloadService }
func (ServiceUnloaded) Kind() Kind   { return KindServiceUnloaded }
func (ServiceFault) Kind() Kind      { return KindServiceFault }
func (ServiceStarting) Kind() Kind   { return KindServiceStarting }
func (ServicePausing) Kind() Kind    { return KindServicePausing }
func (ServiceContinuing) Kind() Kind { return KindServiceContinuing }
func (ServiceStopping) Kind() Kind   { return KindServiceStopping }
func (ServiceRestarting) Kind() Kind { return KindServiceRestarting }
func (ServiceRestarted) Kind() Kind  { return KindServiceRestarted }
func (ServiceCompleted) Kind() Kind  { return KindServiceCompleted }

// Channel is the coordinator sink notifications are published to.
// Send must not block on a receiver; delivery is not acknowledged.
type Channel interface {
	Send(msg Message)
}

// ChannelFunc adapts a function to Channel.
type ChannelFunc func(msg Message)

// Send calls f(msg).
func (f ChannelFunc) Send(msg Message) { f(msg) }
