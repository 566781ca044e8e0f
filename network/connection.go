// network/connection.go
package network

import (
	"encoding/binary"
	"errors"
	"io"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// Packet is one named bus event as carried over a websocket binary message.
type Packet struct {
	Event string
	Data  []byte
}

const maxEventName = 64

var ErrBadEventName = errors.New("network: bad event name")

// EncodePacket frames a packet: 2-byte event name length + name + 4-byte data
// length + data, big endian.
func EncodePacket(event string, data []byte) ([]byte, error) {
	if event == "" || len(event) > maxEventName {
		return nil, ErrBadEventName
	}
	packet := make([]byte, 2+len(event)+4+len(data))
	binary.BigEndian.PutUint16(packet[0:2], uint16(len(event)))
	copy(packet[2:], event)
	off := 2 + len(event)
	binary.BigEndian.PutUint32(packet[off:off+4], uint32(len(data)))
	copy(packet[off+4:], data)
	return packet, nil
}

func DecodePacket(data []byte) (*Packet, error) {
	if len(data) < 2 {
		return nil, io.ErrShortBuffer
	}
	nameLen := int(binary.BigEndian.Uint16(data[0:2]))
	if nameLen == 0 || nameLen > maxEventName {
		return nil, ErrBadEventName
	}
	if len(data) < 2+nameLen+4 {
		return nil, io.ErrShortBuffer
	}
	event := string(data[2 : 2+nameLen])
	off := 2 + nameLen
	length := int(binary.BigEndian.Uint32(data[off : off+4]))
	if len(data) < off+4+length {
		return nil, io.ErrShortBuffer
	}
	return &Packet{
		Event: event,
		Data:  data[off+4 : off+4+length],
	}, nil
}

type Connection interface {
	Send(event string, data []byte) error
	Close() error
	RemoteAddr() net.Addr
	SetIdleTimeout(d time.Duration)
	ReadPacket() (*Packet, error)
}

type WSConnection struct {
	conn      *websocket.Conn
	sendMutex sync.Mutex
	idle      time.Duration
}

func NewWSConnection(conn *websocket.Conn) *WSConnection {
	return &WSConnection{conn: conn}
}

func (c *WSConnection) Send(event string, data []byte) error {
	packet, err := EncodePacket(event, data)
	if err != nil {
		return err
	}

	c.sendMutex.Lock()
	defer c.sendMutex.Unlock()
	return c.conn.WriteMessage(websocket.BinaryMessage, packet)
}

func (c *WSConnection) ReadPacket() (*Packet, error) {
	_, data, err := c.conn.ReadMessage()
	if err != nil {
		return nil, err
	}
	if c.idle > 0 {
		c.conn.SetReadDeadline(time.Now().Add(c.idle))
	}
	return DecodePacket(data)
}

// SetIdleTimeout makes reads fail when nothing arrives for d.
func (c *WSConnection) SetIdleTimeout(d time.Duration) {
	c.idle = d
	c.conn.SetReadDeadline(time.Now().Add(d))
}

func (c *WSConnection) Close() error {
	return c.conn.Close()
}

func (c *WSConnection) RemoteAddr() net.Addr {
	return c.conn.RemoteAddr()
}
