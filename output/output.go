// 运行结果输出，包含WebSocket快照流与MongoDB运行记录两类可选通道
package output

import (
	"github.com/sirupsen/logrus"
)

// log 输出模块的日志记录器
var log = logrus.WithField("module", "output")
