package cartsync

import (
	"context"

	"github.com/nats-io/nats.go"

	"github.com/ceyewan/storekit/connector"
	"github.com/ceyewan/storekit/xerrors"
)

// natsChannel 基于 NATS Core 的广播通道
//
// 跨进程（多浏览器实例、多设备）同步时替换进程内通道。
// 连接由 Connector 管理，Close 不关闭连接。
type natsChannel struct {
	conn *nats.Conn
	subs []*nats.Subscription
}

// NewNATSChannel 基于 NATS 连接器创建广播通道
func NewNATSChannel(conn connector.NATSConnector) (Channel, error) {
	if conn == nil {
		return nil, xerrors.New("cartsync: nats connector is nil")
	}
	client := conn.GetClient()
	if client == nil {
		return nil, xerrors.New("cartsync: nats connector not connected")
	}
	return &natsChannel{conn: client}, nil
}

func (c *natsChannel) Publish(ctx context.Context, key string, payload []byte) error {
	// NATS Core 不支持 context 超时控制，这里做简单检查
	if err := ctx.Err(); err != nil {
		return err
	}
	return c.conn.Publish(key, payload)
}

func (c *natsChannel) Subscribe(ctx context.Context, key string, handler func([]byte)) (func(), error) {
	sub, err := c.conn.Subscribe(key, func(msg *nats.Msg) {
		handler(msg.Data)
	})
	if err != nil {
		return nil, xerrors.Wrapf(err, "cartsync: subscribe to %s", key)
	}
	c.subs = append(c.subs, sub)

	return func() { _ = sub.Unsubscribe() }, nil
}

func (c *natsChannel) Close() error {
	var errs []error
	for _, sub := range c.subs {
		if sub.IsValid() {
			errs = append(errs, sub.Unsubscribe())
		}
	}
	return xerrors.Combine(errs...)
}
