// Package autoload initializes logging from LOG_* variables when imported.
package autoload

import (
	configx "github.com/tanpawarit/Chative-Support-Router/pkg/config"
	logx "github.com/tanpawarit/Chative-Support-Router/pkg/logger"
)

func init() {
	conf, err := configx.New[logx.Config]("LOG")
	if err != nil {
		logx.Init()
		return
	}
	logx.Init(*conf)
}
