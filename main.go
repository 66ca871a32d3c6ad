package main

import (
	"fmt"
	"runtime"

	"github.com/liuran001/LFGBot-Go/bot/app"
	"github.com/liuran001/LFGBot-Go/cmd"
)

var (
	versionName = ""
	commitSHA   = ""
	buildTime   = ""
)

func main() {
	cmd.Execute(app.BuildInfo{
		RuntimeVer: runtime.Version(),
		BinVersion: versionName,
		CommitSHA:  commitSHA,
		BuildTime:  buildTime,
		BuildArch:  fmt.Sprintf("%s/%s", runtime.GOOS, runtime.GOARCH),
	})
}
