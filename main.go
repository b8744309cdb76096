// SPDX-License-Identifier: MPL-2.0

package main

import cmd "github.com/bundlekit/bundlekit/cmd/bundlekit"

func main() {
	cmd.Execute()
}
