package state

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDefaults(t *testing.T) {
	s := New(Vec3{X: 0, Y: 0, Z: 1.2})

	assert.Equal(t, Vec3{}, s.Position())
	assert.Equal(t, Vec3{Z: 1.2}, s.Setpoint())
}

func TestSetAndGet(t *testing.T) {
	s := New(Vec3{})

	s.SetPosition(Vec3{X: 3.0, Y: -1.0, Z: 0.8})
	s.SetSetpoint(Vec3{X: 1.5, Y: 2.0, Z: 1.0})

	pos, sp := s.Snapshot()
	assert.Equal(t, Vec3{X: 3.0, Y: -1.0, Z: 0.8}, pos)
	assert.Equal(t, Vec3{X: 1.5, Y: 2.0, Z: 1.0}, sp)
	assert.Equal(t, pos, s.Position())
	assert.Equal(t, sp, s.Setpoint())
}

func TestNoTornReads(t *testing.T) {
	s := New(Vec3{})

	var wg sync.WaitGroup
	stop := make(chan struct{})

	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			v := float64(i)
			s.SetPosition(Vec3{X: v, Y: v, Z: v})
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; ; i++ {
			select {
			case <-stop:
				return
			default:
			}
			v := float64(-i)
			s.SetSetpoint(Vec3{X: v, Y: v, Z: v})
		}
	}()

	for i := 0; i < 10000; i++ {
		p := s.Position()
		require.True(t, p.X == p.Y && p.Y == p.Z, "torn position read: %+v", p)
		sp := s.Setpoint()
		require.True(t, sp.X == sp.Y && sp.Y == sp.Z, "torn setpoint read: %+v", sp)
	}
	close(stop)
	wg.Wait()
}
