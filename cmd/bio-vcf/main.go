// bio-vcf combines, cleans and inspects variant call files.
//
// Usage: bio-vcf <command> [flags] args...
package main

import "github.com/grailbio/varcombine/cmd/bio-vcf/cmd"

func main() {
	cmd.Run()
}
