package scripting

import (
	"bytes"
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/dop251/goja"
	"github.com/joeycumines/radscript/internal/host"
	"github.com/joeycumines/radscript/internal/registry"
	"github.com/joeycumines/radscript/internal/scene"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const (
	testDefs = `
entityClasses:
  - name: atdm:func_shooter
    attributes:
      editor_usage: Shoots projectiles.
  - name: worldspawn
models:
  - name: builderforger
    mesh: models/md5/chars/builders/forger/builderforger.md5mesh
    anims:
      idle: models/md5/chars/builders/forger/idle.md5anim
`
	testMap = `
nodes:
  - type: entity
    keys: {classname: worldspawn}
    children:
      - type: brush
      - type: patch
  - type: entity
    keys: {classname: atdm:func_shooter}
`
)

type testEngine struct {
	*Engine
	stdout *bytes.Buffer
	stderr *bytes.Buffer
}

func newTestHost(t *testing.T) *host.Host {
	t.Helper()
	h := host.New()
	require.NoError(t, h.Registry.Set("user/paths/appPath", "/opt/editor"))
	require.NoError(t, h.Classes.LoadYAML(strings.NewReader(testDefs)))
	require.NoError(t, h.Scene.LoadYAML(strings.NewReader(testMap)))
	return h
}

func newTestEngine(t *testing.T, opts Options) *testEngine {
	t.Helper()
	var stdout, stderr bytes.Buffer
	e, err := NewEngine(context.Background(), newTestHost(t), &stdout, &stderr, opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = e.Close() })
	return &testEngine{Engine: e, stdout: &stdout, stderr: &stderr}
}

func (te *testEngine) run(t *testing.T, src string) error {
	t.Helper()
	return te.ExecuteScript(te.LoadScriptFromString(t.Name(), src))
}

func TestEngine_SmokeScript(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{})
	err := te.run(t, `
		const value = GlobalRegistry.get('user/paths/appPath');
		print(value);

		const worldspawn = Radiant.findEntityByClassname("worldspawn");
		worldspawn.setKeyValue('test', 'success');
		print('Worldspawn edited');

		const eclass = GlobalEntityClassManager.findClass('atdm:func_shooter');
		print(eclass.getAttribute('editor_usage').value);

		const modelDef = GlobalEntityClassManager.findModel('builderforger');
		print('ModelDef mesh for builderforger = ' + modelDef.mesh);
		for (const name in modelDef.anims) {
			print(name, '=', modelDef.anims[name].file);
		}

		class SceneWalker extends SceneNodeVisitor {
			pre(node) {
				print(node.getNodeType());
				return 1;
			}
		}
		GlobalSceneGraph.root().traverse(new SceneWalker());
	`)
	require.NoError(t, err)

	assert.Equal(t, strings.Join([]string{
		"/opt/editor",
		"Worldspawn edited",
		"Shoots projectiles.",
		"ModelDef mesh for builderforger = models/md5/chars/builders/forger/builderforger.md5mesh",
		"idle = models/md5/chars/builders/forger/idle.md5anim",
		"root", "entity", "brush", "patch", "entity",
	}, "\n")+"\n", te.stdout.String())
	assert.Equal(t, "success", te.Host().Scene.FindEntityByClassname("worldspawn").KeyValue("test"))
	assert.Empty(t, te.stderr.String())
}

func TestEngine_UncaughtBridgeError(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{})
	err := te.run(t, `GlobalRegistry.get('user/paths/missing')`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, registry.ErrKeyNotFound), "%v", err)
	assert.Contains(t, err.Error(), "KeyNotFound")

	err = te.run(t, `Radiant.findEntityByClassname('worldspawn').setKeyValue('', 'x')`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, scene.ErrMutationRejected), "%v", err)
}

func TestEngine_Console(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{})
	require.NoError(t, te.run(t, `
		console.log("to stdout", 1);
		console.error("to stderr");
	`))
	assert.Equal(t, "to stdout 1\n", te.stdout.String())
	assert.Equal(t, "to stderr\n", te.stderr.String())
}

func TestEngine_Require(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{})
	require.NoError(t, te.run(t, `
		const reg = require('radiant:registry');
		if (reg !== GlobalRegistry) throw new Error("registry module differs from global");
		print(require('radiant:app').findEntityByClassname('worldspawn') === Radiant.findEntityByClassname('worldspawn'));
	`))
	assert.Equal(t, "true\n", te.stdout.String())
}

func TestEngine_GlobalsPersistAcrossScripts(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{})
	require.NoError(t, te.run(t, `var counter = 1; GlobalRegistry.set('user/run/count', String(counter));`))
	require.NoError(t, te.run(t, `counter++; print(counter, GlobalRegistry.get('user/run/count'));`))
	assert.Equal(t, "2 1\n", te.stdout.String())
	assert.Len(t, te.Scripts(), 2)
}

func TestEngine_Context(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{TestMode: true})
	err := te.run(t, `
		ctx.defer(() => print("deferred outer"));
		const ok = ctx.run("first", () => {
			ctx.defer(() => print("deferred inner"));
			ctx.log("inside " + ctx.name());
		});
		print("first passed:", ok);
	`)
	require.NoError(t, err)
	assert.Equal(t, strings.Join([]string{
		"[TestEngine_Context/first] inside TestEngine_Context/first",
		"deferred inner",
		"[TestEngine_Context] step first passed",
		"first passed: true",
		"deferred outer",
	}, "\n")+"\n", te.stdout.String())
}

func TestEngine_ContextFailure(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{})
	err := te.run(t, `
		const ok = ctx.run("bad", () => { throw new Error("boom"); });
		print("bad passed:", ok, "failed:", ctx.failed());
	`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScriptFailed))
	assert.Equal(t, "bad passed: false failed: true\n", te.stdout.String())
	assert.Contains(t, te.stderr.String(), "boom")
	assert.Contains(t, te.stderr.String(), "step bad failed")
}

func TestEngine_Fatal(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{})
	err := te.run(t, `
		ctx.defer(() => print("cleanup"));
		try {
			ctx.run("step", () => { ctx.fatal("stop"); print("unreachable"); });
		} catch (e) {
			print("caught");
		}
		print("after");
	`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScriptFailed), "%v", err)
	assert.Equal(t, "cleanup\n", te.stdout.String())
	assert.Contains(t, te.stderr.String(), "stop")

	// the engine stays usable
	require.NoError(t, te.run(t, `print("again")`))
	assert.Equal(t, "cleanup\nagain\n", te.stdout.String())
}

func TestEngine_Timeout(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{Timeout: 50 * time.Millisecond})
	err := te.run(t, `for (;;) {}`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScriptTimeout), "%v", err)

	// an endless visitor is interrupted too, and is not catchable by the script
	err = te.run(t, `
		try {
			GlobalSceneGraph.root().traverse(() => { for (;;) {} });
		} catch (e) {
			print("caught");
		}
	`)
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrScriptTimeout), "%v", err)
	assert.Empty(t, te.stdout.String())

	require.NoError(t, te.run(t, `print("ok")`))
	assert.Equal(t, "ok\n", te.stdout.String())
}

func TestEngine_ContextCancel(t *testing.T) {
	t.Parallel()

	ctx, cancel := context.WithCancel(context.Background())
	var stdout, stderr bytes.Buffer
	e, err := NewEngine(ctx, newTestHost(t), &stdout, &stderr, Options{})
	require.NoError(t, err)
	defer e.Close()

	time.AfterFunc(20*time.Millisecond, cancel)
	err = e.ExecuteScript(e.LoadScriptFromString("spin", `for (;;) {}`))
	require.Error(t, err)

	select {
	case <-e.rt.Done():
	case <-time.After(5 * time.Second):
		t.Fatal("runtime did not stop after cancel")
	}
	assert.ErrorIs(t, e.ExecuteScript(e.LoadScriptFromString("after", `1`)), ErrRuntimeStopped)
}

func TestEngine_Logging(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{SessionID: "session-1", LogLevel: -4})
	require.Equal(t, "session-1", te.SessionID())
	require.NoError(t, te.run(t, `
		log.info("hello", {a: 1});
		log.warn("careful");
		log.printf("%s-%d", "x", 2);
		Radiant.findEntityByClassname("worldspawn").setKeyValue("k", "v");
		print(sessionId);
		print(log.searchLogs("careful").length, log.getLogs(1)[0].message);
	`))
	assert.Contains(t, te.stdout.String(), "session-1\n")

	logs := te.Logger().GetLogs()
	var messages []string
	for _, entry := range logs {
		messages = append(messages, entry.Message)
		assert.Equal(t, "session-1", entry.Attrs["session"], entry.Message)
	}
	assert.Subset(t, messages, []string{"engine started", "hello", "careful", "x-2", "entity key set"})

	hello := te.Logger().SearchLogs("hello")
	require.Len(t, hello, 1)
	assert.Equal(t, "1", hello[0].Attrs["a"])

	require.NoError(t, te.run(t, `log.clearLogs(); print(log.getLogs().length)`))
	assert.True(t, strings.HasSuffix(te.stdout.String(), "0\n"), te.stdout.String())
}

func TestEngine_LoadScript(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{})
	path := filepath.Join(t.TempDir(), "walk.js")
	require.NoError(t, os.WriteFile(path, []byte(`print(GlobalSceneGraph.root().getChildren().length)`), 0o644))

	script, err := te.LoadScript("walk", path)
	require.NoError(t, err)
	assert.Equal(t, path, script.Path)
	require.NoError(t, te.ExecuteScript(script))
	assert.Equal(t, "2\n", te.stdout.String())

	_, err = te.LoadScript("missing", filepath.Join(t.TempDir(), "nope.js"))
	assert.Error(t, err)

	err = te.ExecuteScript(te.LoadScriptFromString("syntax", `let = ;`))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "compile script syntax")
}

func TestEngine_SetGlobal(t *testing.T) {
	t.Parallel()

	te := newTestEngine(t, Options{})
	require.NoError(t, te.SetGlobal("answer", 42))

	// called from inside a script, on the loop goroutine
	require.NoError(t, te.SetGlobal("setFromScript", func(call goja.FunctionCall) goja.Value {
		require.NoError(t, te.SetGlobal("nested", call.Argument(0).String()))
		return goja.Undefined()
	}))
	require.NoError(t, te.run(t, `setFromScript("inner"); print(answer, nested);`))
	assert.Equal(t, "42 inner\n", te.stdout.String())
}
