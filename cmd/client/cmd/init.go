// cmd/client/cmd/init.go
package cmd

import (
	"docsync/cmd/client/cmd/doc"
	"docsync/cmd/client/cmd/sync"
)

func init() {
	// Команды работы с документами
	rootCmd.AddCommand(doc.DocCmd)
	doc.DocCmd.AddCommand(doc.CreateCmd)
	doc.DocCmd.AddCommand(doc.GetCmd)
	doc.DocCmd.AddCommand(doc.ListCmd)
	doc.DocCmd.AddCommand(doc.UpdateCmd)
	doc.DocCmd.AddCommand(doc.DeleteCmd)

	rootCmd.AddCommand(sync.SyncCmd)
	rootCmd.AddCommand(runCmd)
}
