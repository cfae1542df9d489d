package logging

import "go.uber.org/zap"

// New returns a JSON production logger, or a console logger in development.
func New(development bool) (*zap.Logger, error) {
	if development {
		return zap.NewDevelopment()
	}
	return zap.NewProduction()
}
