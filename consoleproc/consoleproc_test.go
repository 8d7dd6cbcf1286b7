package consoleproc

import (
	"bufio"
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/projecteru2/conmux/ptypair"
)

func TestLaunchAttachesStdioToSlave(t *testing.T) {
	pair, err := ptypair.Open()
	require.NoError(t, err)
	defer pair.Close()

	cmd, err := Launch(context.Background(), pair.Slave, "/bin/echo")
	require.NoError(t, err)

	readDone := make(chan string, 1)
	go func() {
		line, _ := bufio.NewReader(pair.Master).ReadString('\n')
		readDone <- line
	}()

	select {
	case line := <-readDone:
		require.Contains(t, line, "\n")
	case <-time.After(2 * time.Second):
		t.Fatal("never saw echo output on master")
	}

	require.NoError(t, cmd.Wait())
}

func TestLaunchFallsBackToShWhenNoPathGiven(t *testing.T) {
	pair, err := ptypair.Open()
	require.NoError(t, err)
	defer pair.Close()

	cmd, err := Launch(context.Background(), pair.Slave, "")
	require.NoError(t, err)
	require.NotEmpty(t, cmd.Path)

	go pair.Master.Write([]byte("exit\n"))
	require.NoError(t, cmd.Wait())
}
