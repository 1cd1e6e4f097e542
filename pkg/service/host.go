package service

// HostSettings describes the service being hosted. Builders pass it to the
// service factory unchanged.
type HostSettings struct {
	Name        string
	DisplayName string
	Description string

	// Params carries free-form settings for the service factory.
	Params map[string]string
}

// Param returns Params[key], or def when missing.
func (s HostSettings) Param(key, def string) string {
	if v, ok := s.Params[key]; ok {
		return v
	}
	return def
}

// HostControl lets a running service ask its host for lifecycle changes.
// Calls never block and take effect after the current operation returns.
type HostControl interface {
	// Stop requests an orderly stop and unload of the service.
	Stop()
	// Restart requests a stop, rebuild and start of the service.
	Restart()
}
