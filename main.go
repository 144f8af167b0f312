package main

import (
	"encoding/base64"
	"flag"
	"os"

	easy "git.fiblab.net/utils/logrus-easy-formatter"
	"github.com/sirupsen/logrus"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/task"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/config"
	"gopkg.in/yaml.v2"
)

var (
	// 模拟任务名，主要用于日志与输出记录的标识
	job = flag.String("job", "job0", "the name of the whole simulation task")
	// 配置文件路径
	configPath = flag.String("config", "", "config file path")
	// 配置文件Base64编码后的数据
	configData = flag.String("config-data", "", "config file base64 encoded data")

	// log
	logLevels = map[string]logrus.Level{
		"trace":    logrus.TraceLevel,
		"debug":    logrus.DebugLevel,
		"info":     logrus.InfoLevel,
		"warn":     logrus.WarnLevel,
		"error":    logrus.ErrorLevel,
		"critical": logrus.FatalLevel,
		"off":      logrus.PanicLevel,
	}
	logLevel = flag.String("log.level", "info", "日志级别（可选项：trace debug info warn error critical off）")

	log = logrus.WithField("module", "gridcity")
)

func main() {
	flag.Parse()
	logrus.SetFormatter(&easy.Formatter{
		TimestampFormat: "2006-01-02 15:04:05.0000",
		LogFormat:       "[%module%] [%time%] [%lvl%] %msg%\n",
	})
	// log: 运行时才修改
	if level, ok := logLevels[*logLevel]; ok {
		logrus.SetLevel(level)
	} else {
		log.Panicf("log.level must be one of %v", logLevels)
	}
	// 获取配置
	var c config.Config
	var file []byte
	var err error
	if *configPath != "" {
		file, err = os.ReadFile(*configPath)
		if err != nil {
			log.Panicf("config file load err: %v", err)
		}
	} else if *configData != "" {
		file, err = base64.StdEncoding.DecodeString(*configData)
		if err != nil {
			log.Panicf("config data load err: %v", err)
		}
	} else {
		log.Panic("config file or config data must be specified")
	}
	if err := yaml.UnmarshalStrict(file, &c); err != nil {
		log.Panicf("config file load err: %v", err)
	}
	if err := c.Validate(); err != nil {
		log.Panicf("config validate err: %v", err)
	}
	log.Infof("%+v", c)

	t := task.NewContext(*job, c)
	defer t.Close()
	metrics := t.Run()
	log.Infof(
		"metrics: travel=%.1fs blocked=%.1fs avg_queue=%.2f avg_delay=%.1f spillbacks=%d switches=%d throughput=%d decisions=%d arrival_success=%v ticks=%d",
		metrics.TravelTime, metrics.BlockingTime, metrics.AvgQueue, metrics.AvgDelay,
		metrics.Spillbacks, metrics.Switches, metrics.Throughput, metrics.Decisions,
		metrics.ArrivalSuccess, metrics.TicksRun,
	)
}
