package output

import (
	"encoding/json"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/entity"
	"github.com/tsinghua-fib-lab/gridcity-sim-oss/utils/config"
)

// 单客户端发送缓冲长度，写入跟不上时丢弃最旧快照
const streamClientBuffer = 16

// Streamer 快照流服务
// 功能：通过WebSocket向外部GUI协作程序广播每步快照
// 说明：单向推送，不接收客户端消息；
// 仿真不等待客户端，发送缓冲写满时丢弃最旧快照；
// 地址为空时服务禁用，所有方法退化为空操作
type Streamer struct {
	server   *http.Server
	upgrader websocket.Upgrader

	mtx     sync.Mutex
	clients map[*streamClient]struct{}
}

type streamClient struct {
	conn *websocket.Conn
	out  chan []byte
}

// NewStreamer 创建并启动快照流服务
// 参数：cfg-流输出配置
// 返回：服务实例（地址为空时为nil，调用方按nil处理禁用）
func NewStreamer(cfg config.StreamOutput) *Streamer {
	if cfg.Addr == "" {
		return nil
	}
	s := &Streamer{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4 * 1024,
			WriteBufferSize: 64 * 1024,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		clients: make(map[*streamClient]struct{}),
	}
	mux := http.NewServeMux()
	mux.HandleFunc("/stream", s.handle)
	s.server = &http.Server{Addr: cfg.Addr, Handler: mux}
	go func() {
		if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Errorf("stream server stopped: %v", err)
		}
	}()
	log.Infof("snapshot stream listening on %s", cfg.Addr)
	return s
}

func (s *Streamer) handle(rw http.ResponseWriter, r *http.Request) {
	conn, err := s.upgrader.Upgrade(rw, r, nil)
	if err != nil {
		return
	}
	c := &streamClient{conn: conn, out: make(chan []byte, streamClientBuffer)}
	s.mtx.Lock()
	s.clients[c] = struct{}{}
	s.mtx.Unlock()
	log.Debugf("stream client connected: %s", conn.RemoteAddr())

	go func() {
		defer s.drop(c)
		for b := range c.out {
			_ = conn.SetWriteDeadline(time.Now().Add(5 * time.Second))
			if err := conn.WriteMessage(websocket.TextMessage, b); err != nil {
				return
			}
		}
	}()
	// 只读取以侦测断开，消息内容忽略
	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			s.drop(c)
			return
		}
	}
}

func (s *Streamer) drop(c *streamClient) {
	s.mtx.Lock()
	if _, ok := s.clients[c]; ok {
		delete(s.clients, c)
		close(c.out)
	}
	s.mtx.Unlock()
	_ = c.conn.Close()
}

// Broadcast 向全部客户端广播一帧快照
// 参数：snapshot-本步全量快照
// 说明：非阻塞；客户端缓冲写满时丢弃最旧一帧再入队
func (s *Streamer) Broadcast(snapshot *entity.TickSnapshot) {
	if s == nil {
		return
	}
	b, err := json.Marshal(snapshot)
	if err != nil {
		log.Errorf("marshal snapshot: %v", err)
		return
	}
	s.mtx.Lock()
	defer s.mtx.Unlock()
	for c := range s.clients {
		select {
		case c.out <- b:
		default:
			select {
			case <-c.out:
			default:
			}
			c.out <- b
		}
	}
}

// Close 关闭快照流服务
func (s *Streamer) Close() {
	if s == nil {
		return
	}
	s.mtx.Lock()
	for c := range s.clients {
		delete(s.clients, c)
		close(c.out)
		_ = c.conn.Close()
	}
	s.mtx.Unlock()
	_ = s.server.Close()
}
