package runstatus

import (
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type wsConnMock struct {
	lock    sync.Mutex
	valueCh chan string
	closed  int
	written []interface{}
}

func newWsConnMock() *wsConnMock {
	return &wsConnMock{valueCh: make(chan string)}
}

func (f *wsConnMock) ReadMessage() (messageType int, p []byte, err error) {
	s, ok := <-f.valueCh
	if !ok {
		return 0, nil, errors.New("closed")
	}
	return 1, []byte(s), nil
}

func (f *wsConnMock) Close() error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.closed++
	return nil
}

func (f *wsConnMock) WriteJSON(v interface{}) error {
	f.lock.Lock()
	defer f.lock.Unlock()
	f.written = append(f.written, v)
	return nil
}

func (f *wsConnMock) closedCount() int {
	f.lock.Lock()
	defer f.lock.Unlock()
	return f.closed
}

func runConnection(conn *wsConnMock) chan bool {
	fc := make(chan bool)
	go func() {
		handleConnection(conn)
		close(fc)
	}()
	return fc
}

func TestHandleConnection_ClosesOnReadFailure(t *testing.T) {
	conn := newWsConnMock()
	fc := runConnection(conn)
	close(conn.valueCh)
	<-fc
	assert.Equal(t, 1, conn.closedCount())
	_, found := getConnections("any")
	assert.False(t, found)
}

func TestHandleConnection_Subscribes(t *testing.T) {
	conn := newWsConnMock()
	fc := runConnection(conn)
	conn.valueCh <- "r1"
	assertSubscribed(t, conn, "r1")
	close(conn.valueCh)
	<-fc
	_, found := getConnections("r1")
	assert.False(t, found)
}

func TestHandleConnection_Resubscribes(t *testing.T) {
	conn := newWsConnMock()
	fc := runConnection(conn)
	conn.valueCh <- "r1"
	conn.valueCh <- "r2"
	assertSubscribed(t, conn, "r2")
	_, found := getConnections("r1")
	assert.False(t, found)
	close(conn.valueCh)
	<-fc
}

func TestHandleConnection_SeveralForSameRun(t *testing.T) {
	conn := newWsConnMock()
	conn1 := newWsConnMock()
	fc := runConnection(conn)
	fc1 := runConnection(conn1)
	conn.valueCh <- "r1"
	conn1.valueCh <- "r1"
	assertSubscribed(t, conn, "r1")
	assertSubscribed(t, conn1, "r1")
	close(conn.valueCh)
	<-fc
	assertSubscribed(t, conn1, "r1")
	close(conn1.valueCh)
	<-fc1
}

//assertSubscribed waits for the reader goroutine to register the ID
func assertSubscribed(t *testing.T, conn WsConn, id string) {
	t.Helper()
	for i := 0; i < 100; i++ {
		conns, found := getConnections(id)
		if found && conns[conn] {
			return
		}
		time.Sleep(time.Millisecond)
	}
	conns, found := getConnections(id)
	assert.True(t, found && conns[conn])
}
