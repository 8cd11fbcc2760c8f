package rundown_test

import (
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/hostloop/rundown"
)

func TestFinalizersRunInOrder(t *testing.T) {
	f := &rundown.Finalizers{}

	ran := []int{}
	f.Add(func() { ran = append(ran, 1) })
	f.Add(func() { ran = append(ran, 2) })
	f.Add(func() { ran = append(ran, 3) })

	f.RunAll()
	require.Equal(t, []int{1, 2, 3}, ran)

	// the registry drained; a second pass runs nothing
	f.RunAll()
	require.Equal(t, []int{1, 2, 3}, ran)

	// later additions run on the next pass
	f.Add(func() { ran = append(ran, 4) })
	f.RunAll()
	require.Equal(t, []int{1, 2, 3, 4}, ran)
}

func TestFinalizerPanicPropagates(t *testing.T) {
	f := &rundown.Finalizers{}
	f.Add(func() { panic("finalizer blew up") })

	require.PanicsWithValue(t, "finalizer blew up", f.RunAll)
}
