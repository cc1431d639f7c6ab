package compilelog

import (
	"bytes"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLog_RecordsInOrder(t *testing.T) {
	var buf bytes.Buffer
	l := New(slog.New(slog.NewTextHandler(&buf, nil)))

	l.BeginEvent("Compile")
	l.SetSourcePath("/Game/Dialogs/Intro")
	l.Note("Compile dialog")
	l.Warning("two roots", "root-2")
	l.Error("Root node not found")
	l.EndEvent()

	msgs := l.Messages()
	require.Len(t, msgs, 3)
	assert.Equal(t, Note, msgs[0].Severity)
	assert.Equal(t, "Compile", msgs[0].Event)
	assert.Equal(t, "root-2", msgs[1].NodeID)
	assert.Equal(t, "error: Root node not found", msgs[2].String())

	assert.Equal(t, 1, l.NumErrors())
	assert.Equal(t, 1, l.NumWarnings())
	assert.True(t, l.HasErrors())
	assert.Len(t, l.Errors(), 1)
	assert.Empty(t, l.Event())

	assert.Contains(t, buf.String(), "level=ERROR")
	assert.Contains(t, buf.String(), "path=/Game/Dialogs/Intro")
}

func TestLog_MessagesIsACopy(t *testing.T) {
	l := New(nil)
	l.Note("a")
	msgs := l.Messages()
	msgs[0].Text = "changed"
	assert.Equal(t, "a", l.Messages()[0].Text)
}

func TestListing(t *testing.T) {
	li := NewListing()
	assert.Equal(t, "DialogCompileResults", li.Name)

	li.AddMessages(Message{Severity: Error, Text: "x"}, Message{Severity: Note, Text: "y"})
	assert.Len(t, li.Messages(), 2)

	li.Clear()
	assert.Empty(t, li.Messages())
}

func TestSeverity_MarshalText(t *testing.T) {
	b, err := Warning.MarshalText()
	require.NoError(t, err)
	assert.Equal(t, "warning", string(b))
}
