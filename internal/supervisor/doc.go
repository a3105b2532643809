// Package supervisor runs the storefront workers.
//
// In single mode the supervisor builds one Application and serves it from
// the current process. In prefork mode it binds the listener once and starts
// one child process per worker, each running the hidden "worker" command with
// the listener inherited as file descriptor 3. Every worker builds and warms
// up its own Application and runs the post-start hooks before it accepts
// connections, so per-process state such as the tracer is never shared.
package supervisor
