package client

import (
	"fmt"
	"os"
	"sync"
	"time"
)

// Historian appends one line per command exchange to a text file.
type Historian struct {
	mu   sync.Mutex
	path string
	now  func() time.Time
}

// NewHistorian returns a historian writing to path.
func NewHistorian(path string) *Historian {
	return &Historian{path: path, now: time.Now}
}

// FormatTransaction renders one exchange.  A failed exchange records
// the error in place of the received position.
func FormatTransaction(ts time.Time, sent, received string, err error) string {
	if err != nil {
		received = "ERRO NA COMUNICACAO: " + err.Error()
	}
	return fmt.Sprintf("[%s] - Target Enviado: <%s> | Posicao Recebida: <%s>",
		ts.Format("2006-01-02T15:04:05.000000"), sent, received)
}

// Record appends the exchange to the file.
func (h *Historian) Record(sent, received string, err error) error {
	h.mu.Lock()
	defer h.mu.Unlock()

	fd, ferr := os.OpenFile(h.path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if ferr != nil {
		return ferr
	}
	if _, werr := fmt.Fprintln(fd, FormatTransaction(h.now(), sent, received, err)); werr != nil {
		fd.Close()
		return werr
	}
	return fd.Close()
}
