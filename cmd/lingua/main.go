// Command lingua is the Lingua ahead-of-time compiler's CLI: build a native
// executable from a .lingua source file (the entire language evaluates at
// compile time) or build-and-run it in one step.
package main

import (
	"flag"
	"fmt"
	"os"

	"github.com/alexisbouchez/linguaiter/internal/compiler"
)

const usage = `usage:
  lingua <file>.lingua            build to a temp path, run it, forward its exit code
  lingua build <file> -o <output> build only, writing the executable to <output>
  lingua completions <shell>      print a completion script (bash, zsh, fish)
  lingua --help                   show this message
`

// atExit prints err (if any) to stderr and terminates with status 1: the CLI
// has exactly one failure exit code, since a compiled program's own exit
// code is only meaningful once it has actually started running.
func atExit(err error) {
	if err == nil {
		return
	}
	fmt.Fprintf(os.Stderr, "%v\n", err)
	os.Exit(1)
}

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}

	switch os.Args[1] {
	case "-h", "--help", "help":
		fmt.Print(usage)
		return
	case "build":
		runBuild(os.Args[2:])
		return
	case "completions":
		runCompletions(os.Args[2:])
		return
	}

	// Bare `lingua <file>.lingua`: build to a temp path, run it, forward the
	// child's exit code directly rather than going through atExit, since a
	// successfully-run program's own exit status is not a CLI failure.
	code, err := compiler.BuildAndRun(os.Args[1])
	atExit(err)
	os.Exit(code)
}

func runBuild(args []string) {
	fs := flag.NewFlagSet("build", flag.ExitOnError)
	out := fs.String("o", "", "output `path` for the compiled executable")
	fs.Parse(args)

	if fs.NArg() != 1 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(1)
	}
	src := fs.Arg(0)
	outPath := *out
	if outPath == "" {
		outPath = defaultOutputName(src)
	}

	atExit(compiler.Build(src, compiler.HostTarget(), outPath))
}

func defaultOutputName(src string) string {
	name := src
	for i := len(name) - 1; i >= 0; i-- {
		switch name[i] {
		case '/':
			return "a.out"
		case '.':
			return name[:i]
		}
	}
	return name
}

func runCompletions(args []string) {
	if len(args) != 1 {
		fmt.Fprintln(os.Stderr, "usage: lingua completions <bash|zsh|fish>")
		os.Exit(1)
	}
	script, ok := completionScripts[args[0]]
	if !ok {
		fmt.Fprintf(os.Stderr, "unknown shell %q (want bash, zsh, or fish)\n", args[0])
		os.Exit(1)
	}
	fmt.Print(script)
}

var completionScripts = map[string]string{
	"bash": `_lingua_completions() {
  local cur prev
  cur="${COMP_WORDS[COMP_CWORD]}"
  prev="${COMP_WORDS[COMP_CWORD-1]}"
  if [ "$COMP_CWORD" -eq 1 ]; then
    COMPREPLY=($(compgen -W "build completions --help" -- "$cur"))
    return
  fi
  if [ "$prev" = "completions" ]; then
    COMPREPLY=($(compgen -W "bash zsh fish" -- "$cur"))
    return
  fi
  COMPREPLY=($(compgen -f -X '!*.lingua' -- "$cur"))
}
complete -F _lingua_completions lingua
`,
	"zsh": `#compdef lingua
_arguments \
  '1:command:(build completions)' \
  '*:file:_files -g "*.lingua"'
`,
	"fish": `complete -c lingua -n "__fish_use_subcommand" -a build -d "build only"
complete -c lingua -n "__fish_use_subcommand" -a completions -d "print a shell completion script"
complete -c lingua -n "__fish_seen_subcommand_from completions" -a "bash zsh fish"
complete -c lingua -k -x -a "(__fish_complete_suffix .lingua)"
`,
}
