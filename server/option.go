package server

type Option func(s *Server)

// WithPort sets the port the server listens on. The CAIRN_PORT environment
// variable takes precedence over this option.
func WithPort(port string) Option {
	return func(s *Server) {
		s.port = port
	}
}
