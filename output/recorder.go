package output

import (
	"context"
	"time"

	"git.fiblab.net/general/common/v2/mongoutil"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/config"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
)

// 快照写入的批大小，攒满一批做一次InsertMany
const recorderBatchSize = 50

// Recorder 运行记录器
// 功能：将每步快照与最终指标写入MongoDB，供外部报表协作程序消费
// 说明：快照按批写入以摊薄往返开销；
// 连接串为空时记录器禁用，所有方法退化为空操作；
// 写入失败记录日志后继续运行，不中断仿真
type Recorder struct {
	client *mongo.Client
	coll   *mongo.Collection
	job    string

	buffer []any
}

// NewRecorder 创建运行记录器
// 参数：cfg-MongoDB输出配置，job-本次运行的任务名
// 返回：记录器实例（连接串为空时为nil，调用方按nil处理禁用）
// 说明：连接失败直接panic，输出通道不可用的运行没有意义
func NewRecorder(cfg config.MongoOutput, job string) *Recorder {
	if cfg.URI == "" {
		return nil
	}
	client := mongoutil.NewClient(cfg.URI)
	r := &Recorder{
		client: client,
		coll:   client.Database(cfg.DB).Collection(cfg.Col),
		job:    job,
		buffer: make([]any, 0, recorderBatchSize),
	}
	log.Infof("run recorder writing to %s.%s", cfg.DB, cfg.Col)
	return r
}

// Write 记录一帧快照
// 参数：snapshot-本步全量快照
func (r *Recorder) Write(snapshot *entity.TickSnapshot) {
	if r == nil {
		return
	}
	r.buffer = append(r.buffer, bson.M{
		"class": "tick",
		"job":   r.job,
		"step":  snapshot.Step,
		"data":  snapshot,
	})
	if len(r.buffer) >= recorderBatchSize {
		r.flush()
	}
}

// WriteMetrics 记录最终运行指标
// 参数：metrics-运行结束时的聚合指标
func (r *Recorder) WriteMetrics(metrics *entity.RunMetrics) {
	if r == nil {
		return
	}
	r.buffer = append(r.buffer, bson.M{
		"class": "metrics",
		"job":   r.job,
		"data":  metrics,
	})
	r.flush()
}

func (r *Recorder) flush() {
	if len(r.buffer) == 0 {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if _, err := r.coll.InsertMany(ctx, r.buffer); err != nil {
		log.Errorf("insert %d records failed: %v", len(r.buffer), err)
	}
	r.buffer = r.buffer[:0]
}

// Close 冲刷缓冲并断开连接
func (r *Recorder) Close() {
	if r == nil {
		return
	}
	r.flush()
	if err := r.client.Disconnect(context.Background()); err != nil {
		log.Errorf("disconnect mongo: %v", err)
	}
}
