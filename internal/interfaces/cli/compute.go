package cli

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/IUPAC-InChI/RInChI/internal/application/rinchi"
	"github.com/IUPAC-InChI/RInChI/internal/infrastructure/mdl"
	"github.com/IUPAC-InChI/RInChI/pkg/errors"
)

// identifiersView prints as the five lines RInChI, RAuxInfo, Long-, Short-
// and Web-RInChIKey.
type identifiersView struct {
	*rinchi.Identifiers
}

func (v identifiersView) String() string {
	return strings.Join([]string{v.RInChI, v.RAuxInfo, v.LongKey, v.ShortKey, v.WebKey}, "\n") + "\n"
}

func (v identifiersView) TableHeaders() []string { return []string{"Field", "Value"} }

func (v identifiersView) TableRows() [][]string {
	return [][]string{
		{"RInChI", v.RInChI},
		{"RAuxInfo", v.RAuxInfo},
		{"Long-RInChIKey", v.LongKey},
		{"Short-RInChIKey", v.ShortKey},
		{"Web-RInChIKey", v.WebKey},
	}
}

type fileView struct {
	Format   string `json:"format"`
	FileText string `json:"file_text"`
}

func newFileView(text string) fileView {
	f := mdl.FormatRXN
	if strings.HasPrefix(text, mdl.TagRDFile) {
		f = mdl.FormatRD
	}
	return fileView{Format: string(f), FileText: text}
}

func (v fileView) String() string { return v.FileText }

type keyView struct {
	KeyType string `json:"key_type"`
	Key     string `json:"key"`
}

func (v keyView) String() string { return v.Key }

type decompositionView struct {
	*rinchi.Decomposition
}

func (v decompositionView) String() string { return v.Text() }

func (v decompositionView) TableHeaders() []string {
	return []string{"Role", "InChIKey", "InChI"}
}

func (v decompositionView) TableRows() [][]string {
	rows := make([][]string, 0, len(v.Components))
	for _, c := range v.Components {
		rows = append(rows, []string{c.Role, c.InChIKey, c.InChI})
	}
	return rows
}

// readInput reads a file, or stdin for "-". xz-compressed input is inflated.
func readInput(cmd *cobra.Command, path string) (string, error) {
	var r io.Reader
	if path == "-" {
		r = cmd.InOrStdin()
	} else {
		f, err := os.Open(path)
		if err != nil {
			return "", errors.Wrapf(err, errors.ErrCodeBadRequest, "cannot open input file %s", path)
		}
		defer f.Close()
		r = f
	}
	return mdl.ReadText(r)
}

// splitRInChIFile returns the RInChI on the first line and the RAuxInfo on
// the second, if there is one.
func splitRInChIFile(text string) (string, string) {
	lines := strings.SplitN(text, "\n", 3)
	id := strings.TrimSpace(lines[0])
	if len(lines) > 1 {
		if aux := strings.TrimSpace(lines[1]); strings.HasPrefix(aux, "RAuxInfo=") {
			return id, aux
		}
	}
	return id, ""
}

func newComputeCmd() *cobra.Command {
	var forceEquilibrium, asRD, asRXN bool

	cmd := &cobra.Command{
		Use:   "compute <file>",
		Short: "Convert between reaction files and RInChI",
		Long: "compute reads an RXN or RD file and prints its RInChI, RAuxInfo and the\n" +
			"Long-, Short- and Web-RInChIKey, one per line. When the first line of the\n" +
			"file is an RInChI (optionally followed by its RAuxInfo) the reaction file\n" +
			"is reconstructed instead: RD if the reaction has agents, RXN otherwise,\n" +
			"unless --rd or --rxn is given. Use - to read stdin.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if asRD && asRXN {
				return fmt.Errorf("--rd and --rxn are mutually exclusive")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			text, err := readInput(cmd, args[0])
			if err != nil {
				return err
			}

			if mdl.DetectFormat(mdl.FirstLine(text)) == mdl.FormatRInChI {
				out := mdl.FormatAuto
				switch {
				case asRD:
					out = mdl.FormatRD
				case asRXN:
					out = mdl.FormatRXN
				}
				id, aux := splitRInChIFile(text)
				file, err := cliCtx.Service.FileTextFromRInChI(cmd.Context(), id, aux, string(out))
				if err != nil {
					return err
				}
				return PrintResult(cmd, newFileView(file))
			}

			ids, err := cliCtx.Service.FromFileText(cmd.Context(), &rinchi.FileInput{
				Text:             text,
				Name:             args[0],
				ForceEquilibrium: forceEquilibrium,
			})
			if err != nil {
				return err
			}
			return PrintResult(cmd, identifiersView{ids})
		},
	}

	f := cmd.Flags()
	f.BoolVar(&forceEquilibrium, "force-equilibrium", false, "treat the reaction as an equilibrium")
	f.BoolVar(&asRD, "rd", false, "write an RD file when reconstructing from an RInChI")
	f.BoolVar(&asRXN, "rxn", false, "write an RXN file when reconstructing from an RInChI")
	return cmd
}

func newKeyCmd() *cobra.Command {
	var keyType, fromRInChI string
	var forceEquilibrium bool

	cmd := &cobra.Command{
		Use:   "key [file]",
		Short: "Print one RInChIKey of a reaction file or an RInChI",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (fromRInChI == "") == (len(args) == 0) {
				return fmt.Errorf("give either a file or --rinchi")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}

			var key string
			if fromRInChI != "" {
				key, err = cliCtx.Service.KeyFromRInChI(cmd.Context(), fromRInChI, keyType)
			} else {
				var text string
				if text, err = readInput(cmd, args[0]); err != nil {
					return err
				}
				key, err = cliCtx.Service.KeyFromFileText(cmd.Context(), &rinchi.FileInput{
					Text:             text,
					Name:             args[0],
					ForceEquilibrium: forceEquilibrium,
				}, keyType)
			}
			if err != nil {
				return err
			}
			return PrintResult(cmd, keyView{KeyType: strings.ToUpper(keyType[:1]), Key: key})
		},
	}

	f := cmd.Flags()
	f.StringVarP(&keyType, "type", "t", "L", "key type: L(ong), S(hort) or W(eb)")
	f.StringVar(&fromRInChI, "rinchi", "", "compute the key of this RInChI instead of a file")
	f.BoolVar(&forceEquilibrium, "force-equilibrium", false, "treat the reaction as an equilibrium")
	return cmd
}

func newDecomposeCmd() *cobra.Command {
	var fromRInChI, rauxinfo string

	cmd := &cobra.Command{
		Use:   "decompose [file]",
		Short: "List the component InChIs of an RInChI",
		Long: "decompose splits an RInChI into its direction, no-structure counts and\n" +
			"the InChI and AuxInfo of each component. The RInChI comes from --rinchi\n" +
			"or from the first line of a file whose second line may hold the RAuxInfo.",
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			if (fromRInChI == "") == (len(args) == 0) {
				return fmt.Errorf("give either a file or --rinchi")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			id, aux := fromRInChI, rauxinfo
			if len(args) == 1 {
				text, err := readInput(cmd, args[0])
				if err != nil {
					return err
				}
				id, aux = splitRInChIFile(text)
			}
			d, err := cliCtx.Service.Decompose(cmd.Context(), id, aux)
			if err != nil {
				return err
			}
			return PrintResult(cmd, decompositionView{d})
		},
	}

	f := cmd.Flags()
	f.StringVar(&fromRInChI, "rinchi", "", "RInChI to decompose")
	f.StringVar(&rauxinfo, "rauxinfo", "", "RAuxInfo belonging to --rinchi")
	return cmd
}

func newFromInChIsCmd() *cobra.Command {
	var reactants, products, agents string
	var equilibrium bool

	cmd := &cobra.Command{
		Use:   "from-inchis",
		Short: "Assemble an RInChI from per-role InChI lists",
		Long: "from-inchis reads one file per role, each listing InChI lines optionally\n" +
			"followed by their AuxInfo line, and prints the resulting identifiers.",
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			if reactants == "" && products == "" && agents == "" {
				return fmt.Errorf("at least one of --reactants, --products or --agents is required")
			}
			cliCtx, err := GetCLIContext(cmd)
			if err != nil {
				return err
			}
			in := &rinchi.InChIsInput{Equilibrium: equilibrium}
			for _, src := range []struct {
				path string
				dst  *string
			}{{reactants, &in.Reactants}, {products, &in.Products}, {agents, &in.Agents}} {
				if src.path == "" {
					continue
				}
				if *src.dst, err = readInput(cmd, src.path); err != nil {
					return err
				}
			}
			ids, err := cliCtx.Service.FromInChIs(cmd.Context(), in)
			if err != nil {
				return err
			}
			return PrintResult(cmd, identifiersView{ids})
		},
	}

	f := cmd.Flags()
	f.StringVar(&reactants, "reactants", "", "file listing reactant InChIs")
	f.StringVar(&products, "products", "", "file listing product InChIs")
	f.StringVar(&agents, "agents", "", "file listing agent InChIs")
	f.BoolVar(&equilibrium, "equilibrium", false, "mark the reaction as an equilibrium")
	return cmd
}
