package cli

import (
	"github.com/spf13/cobra"

	"github.com/mewuto/ion-shuttler/internal/config"
	"github.com/mewuto/ion-shuttler/internal/distance"
	"github.com/mewuto/ion-shuttler/internal/lattice"
)

// TopologyOptions holds flags for the topology command.
type TopologyOptions struct {
	*RootOptions
	Arch []int
}

// EdgeInfo describes one edge of the lattice.
type EdgeInfo struct {
	ID       int    `json:"id"`
	From     string `json:"from"`
	To       string `json:"to"`
	Kind     string `json:"kind"`
	Distance int    `json:"distance"`
}

// TopologyResult is the output of the topology command.
type TopologyResult struct {
	Lattice        string     `json:"lattice"`
	Nodes          int        `json:"nodes"`
	Junctions      int        `json:"junctions"`
	Entry          string     `json:"entry"`
	Exit           string     `json:"exit"`
	ProcessingZone string     `json:"processing_zone"`
	Parking        string     `json:"parking"`
	PathToPZ       []int      `json:"path_to_pz"`
	Edges          []EdgeInfo `json:"edges"`
}

// NewTopologyCommand creates the topology command.
func NewTopologyCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TopologyOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "topology [config]",
		Short: "List the edge index of a lattice",
		Long: `List every edge id of a lattice with its endpoints, kind and hop
distance to the processing zone.

The lattice comes from a config file or from --arch.

Examples:
  ionshuttle topology ./run.yaml
  ionshuttle topology --arch 3,3,1,1 --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runTopology(opts, args, cmd)
		},
	}

	cmd.Flags().IntSliceVar(&opts.Arch, "arch", nil, "rows,cols,vchain,hchain")

	return cmd
}

func runTopology(opts *TopologyOptions, args []string, cmd *cobra.Command) error {
	out := newFormatter(cmd, opts.RootOptions)

	var params lattice.Params
	switch {
	case len(args) == 1 && len(opts.Arch) > 0:
		return NewExitError(ExitCommandError, "pass either a config or --arch, not both")
	case len(args) == 1:
		cfg, err := config.Load(args[0])
		if err != nil {
			return loadExit(&LoadError{Code: ErrCodeInvalidConfig, Path: args[0], Err: err})
		}
		params = cfg.Params()
	case len(opts.Arch) == 4:
		params = lattice.Params{Rows: opts.Arch[0], Cols: opts.Arch[1], VChain: opts.Arch[2], HChain: opts.Arch[3]}
	default:
		return NewExitError(ExitCommandError, "a config or --arch rows,cols,vchain,hchain is required")
	}

	topo, err := lattice.Build(params)
	if err != nil {
		return WrapExitError(ExitFailure, "invalid lattice", err)
	}
	oracle, err := distance.New(topo)
	if err != nil {
		return WrapExitError(ExitFailure, "failed to build distance oracle", err)
	}

	if !out.JSON() {
		if err := lattice.Describe(out.Writer, topo); err != nil {
			return err
		}
		out.Printf("distance to processing zone:")
		for id := 0; id < topo.NumEdges(); id++ {
			out.Printf(" %d", oracle.Distance(lattice.EdgeID(id)))
		}
		out.Printf("\n")
		return nil
	}
	return out.Success(describeTopology(topo, oracle))
}

func describeTopology(topo *lattice.Topology, oracle *distance.Oracle) TopologyResult {
	res := TopologyResult{
		Lattice:        topo.Params.String(),
		Nodes:          topo.NumNodes(),
		Junctions:      len(topo.Junctions),
		Entry:          topo.Entry.String(),
		Exit:           topo.Exit.String(),
		ProcessingZone: topo.ProcessingZone.String(),
		Parking:        topo.ParkingNode.String(),
		PathToPZ:       []int{},
		Edges:          make([]EdgeInfo, 0, topo.NumEdges()),
	}
	for _, id := range topo.PathToPZIDs() {
		res.PathToPZ = append(res.PathToPZ, int(id))
	}
	for id := 0; id < topo.NumEdges(); id++ {
		e := topo.Index().Reverse(lattice.EdgeID(id))
		res.Edges = append(res.Edges, EdgeInfo{
			ID:       id,
			From:     e.A.String(),
			To:       e.B.String(),
			Kind:     topo.EdgeKind(lattice.EdgeID(id)).String(),
			Distance: oracle.Distance(lattice.EdgeID(id)),
		})
	}
	return res
}

