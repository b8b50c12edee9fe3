// Package bqtest runs bootique applications inside tests.
//
//	func TestGreet(t *testing.T) {
//	    io := bqtest.NoTrace()
//	    outcome := bqtest.New(t).App("--greet").
//	        ModuleFunc(func(b *bootique.Binder) {
//	            bootique.Extend(b).AddCommand(NewGreetCommand)
//	        }).
//	        BootLogger(io.BootLogger()).
//	        CreateRuntime().
//	        Run()
//
//	    require.True(t, outcome.IsSuccess())
//	    assert.Equal(t, "hello", strings.TrimSpace(io.Stdout()))
//	}
//
// Runtimes are shut down when the test ends.
package bqtest
