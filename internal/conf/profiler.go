package conf

import "errors"

type ProfilerConfig struct {
	Enabled bool   `default:"false"`
	Host    string `default:"localhost"`
	Port    string `default:"9998"`
}

func (pc *ProfilerConfig) Validate() error {
	if pc.Enabled && pc.Port == "" {
		return errors.New("conf: SIWS_PROFILER_PORT is required when the profiler is enabled")
	}
	return nil
}
