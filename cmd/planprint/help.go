package main

import (
	"fmt"
	"io"
)

// printUsage prints the main usage message.
func printUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: planprint <command> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Commands:")
	fmt.Fprintln(w, "  serve      Serve the print API and renderer callbacks")
	fmt.Fprintln(w, "  capture    Capture one page to an image")
	fmt.Fprintln(w, "  token      Issue a bearer token for the print API")
	fmt.Fprintln(w, "  doctor     Check the renderer and system setup")
	fmt.Fprintln(w, "  version    Show version information")
	fmt.Fprintln(w, "  help       Show help for a command")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Run 'planprint help <command>' for details on a specific command.")
}

func printCommonUsage(w io.Writer) {
	fmt.Fprintln(w, "Common:")
	fmt.Fprintln(w, "  -c, --config <name>       Config file name or path")
	fmt.Fprintln(w, "  -v, --verbose             Log at debug level")
	fmt.Fprintln(w, "      --log-format <s>      Log format: console, json")
}

func printRendererUsage(w io.Writer) {
	fmt.Fprintln(w, "Renderer:")
	fmt.Fprintln(w, "      --backend <s>         Backend: exec (default), rod")
	fmt.Fprintln(w, "      --binary <path>       Renderer binary (default wk2img)")
	fmt.Fprintln(w, "      --kill-mode <s>       On timeout kill: process-group (default), name")
	fmt.Fprintln(w, "      --timeout <d>         Hard capture timeout (default 30s)")
	fmt.Fprintln(w, "      --delay <d>           Wait before capturing (default 10s)")
}

// printServeUsage prints usage for the serve command.
func printServeUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: planprint serve [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Serve POST/GET /api/print, single-use renderer callbacks and published")
	fmt.Fprintln(w, "captures under /print/.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Server:")
	fmt.Fprintln(w, "  -a, --addr <addr>         Listen address (default :8080)")
	fmt.Fprintln(w, "      --web-root <dir>      Served web root (default ./web)")
	fmt.Fprintln(w, "      --base-url <url>      Callback base URL (default: connection address)")
	fmt.Fprintln(w, "      --upstream <url>      Planning view server")
	fmt.Fprintln(w, "      --print-config        Print the effective configuration and exit")
	fmt.Fprintln(w)
	printRendererUsage(w)
	fmt.Fprintln(w, "  -w, --pool-size <n>       Concurrent captures (0 = auto)")
	fmt.Fprintln(w, "      --strict              Fail requests whose capture failed")
	fmt.Fprintln(w, "      --computed-height     Size captures from the task count")
	fmt.Fprintln(w, "      --keep-overlays       Keep generated print stylesheets")
	fmt.Fprintln(w)
	printCommonUsage(w)
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Environment:")
	fmt.Fprintln(w, "  PLANPRINT_CONFIG, PLANPRINT_ADDR, PLANPRINT_WEB_ROOT, PLANPRINT_BASE_URL,")
	fmt.Fprintln(w, "  PLANPRINT_PLANNER_UPSTREAM, PLANPRINT_JWT_SECRET, PLANPRINT_TIMEOUT,")
	fmt.Fprintln(w, "  PLANPRINT_DELAY, PLANPRINT_POOL_SIZE, PLANPRINT_RENDERER_BACKEND,")
	fmt.Fprintln(w, "  PLANPRINT_RENDERER_BINARY, PLANPRINT_KILL_MODE, PLANPRINT_LOG_LEVEL,")
	fmt.Fprintln(w, "  PLANPRINT_LOG_FORMAT, PLANPRINT_S3_BUCKET, PLANPRINT_S3_ENDPOINT,")
	fmt.Fprintln(w, "  PLANPRINT_S3_REGION, PLANPRINT_S3_ACCESS_KEY, PLANPRINT_S3_SECRET_KEY")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Precedence: flags > environment > config file > defaults.")
}

// printCaptureUsage prints usage for the capture command.
func printCaptureUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: planprint capture [--url] <url> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Capture one page with the configured renderer, without serving callbacks.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Capture:")
	fmt.Fprintln(w, "  -u, --url <url>           Page to capture")
	fmt.Fprintln(w, "  -o, --output <path>       Output image (default capture.png)")
	fmt.Fprintln(w, "      --stylesheet <path>   Base stylesheet; a print overlay is generated from it")
	fmt.Fprintln(w, "      --width <px>          Viewport width (default 1280)")
	fmt.Fprintln(w, "      --height <px>         Viewport height (0 = default or from --task-count)")
	fmt.Fprintln(w, "      --task-count <n>      Task rows")
	fmt.Fprintln(w, "  -p, --param <k=v>         Display toggle, e.g. labels=all (repeatable)")
	fmt.Fprintln(w)
	printRendererUsage(w)
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printTokenUsage prints usage for the token command.
func printTokenUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: planprint token --subject <id> [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Issue a bearer token signed with auth.secret.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Token:")
	fmt.Fprintln(w, "  -s, --subject <id>        Token subject (required)")
	fmt.Fprintln(w, "      --username <s>        Display name (default: subject)")
	fmt.Fprintln(w, "  -r, --role <s>            Role claim (repeatable)")
	fmt.Fprintln(w, "      --ttl <d>             Lifetime (default auth.tokenTTL)")
	fmt.Fprintln(w)
	printCommonUsage(w)
}

// printDoctorUsage prints usage for the doctor command.
func printDoctorUsage(w io.Writer) {
	fmt.Fprintln(w, "Usage: planprint doctor [flags]")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Check that captures can run on this system.")
	fmt.Fprintln(w)
	fmt.Fprintln(w, "Flags:")
	fmt.Fprintln(w, "      --json                Output as JSON")
	fmt.Fprintln(w, "      --backend <s>         Backend to check: exec, rod (default exec)")
	fmt.Fprintln(w, "      --binary <path>       Renderer binary (default wk2img)")
	fmt.Fprintln(w, "      --web-root <dir>      Web root to check for writability")
}

// runHelp prints help for a specific command.
func runHelp(args []string, env *Environment) {
	if len(args) == 0 {
		printUsage(env.Stdout)
		return
	}

	switch args[0] {
	case "serve":
		printServeUsage(env.Stdout)
	case "capture":
		printCaptureUsage(env.Stdout)
	case "token":
		printTokenUsage(env.Stdout)
	case "doctor":
		printDoctorUsage(env.Stdout)
	case "version":
		fmt.Fprintln(env.Stdout, "Usage: planprint version")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show version information.")
	case "help":
		fmt.Fprintln(env.Stdout, "Usage: planprint help [command]")
		fmt.Fprintln(env.Stdout)
		fmt.Fprintln(env.Stdout, "Show help for a command.")
	default:
		fmt.Fprintf(env.Stderr, "Unknown command: %s\n", args[0])
		printUsage(env.Stderr)
	}
}
