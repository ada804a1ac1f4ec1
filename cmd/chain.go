package cmd

import (
	"fmt"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/hybrid-depletion/hybrid-depletion/dep"
)

var chainFilePath string // chain to inspect

// chainCmd loads and validates a transmutation chain, then prints its shape
var chainCmd = &cobra.Command{
	Use:   "chain",
	Short: "Validate a transmutation chain file and print statistics",
	Run: func(cmd *cobra.Command, args []string) {
		chain, err := dep.LoadChainFile(chainFilePath)
		if err != nil {
			logrus.Fatalf("chain validation failed: %v", err)
		}

		decayChannels, reactionChannels, fissile := 0, 0, 0
		for i := 0; i < chain.Len(); i++ {
			nuc := chain.Nuclide(i)
			decayChannels += len(nuc.DecayModes)
			reactionChannels += len(nuc.Reactions)
			if len(nuc.FissionYields) > 0 {
				fissile++
			}
		}
		fmt.Printf("nuclides:           %d\n", chain.Len())
		fmt.Printf("decay channels:     %d\n", decayChannels)
		fmt.Printf("reaction channels:  %d\n", reactionChannels)
		fmt.Printf("with yields:        %d\n", fissile)
		fmt.Printf("scored reactions:   %d\n", chain.RateIndex().Len())
	},
}

func init() {
	chainCmd.Flags().StringVar(&chainFilePath, "chain", "chain.yaml", "Transmutation chain file")
	rootCmd.AddCommand(chainCmd)
}
