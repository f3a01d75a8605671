package main

import (
	"bufio"
	"fmt"
	"log"
	"math/rand"
	"os"
	"runtime"
	"strconv"
	"strings"
	"time"

	"godct/basis"
	"godct/block"
	"godct/df"
	"godct/dpd"
	"godct/eri"
	"godct/store"
)

var (
	WarningLogger *log.Logger
	InfoLogger    *log.Logger
	ErrorLogger   *log.Logger
	OutputLogger  *log.Logger
)

func initLog(fname string) {
	file, err := os.OpenFile(fname, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		log.Fatal(err)
	}

	InfoLogger = log.New(file, "INFO: ", log.Ldate|log.Ltime)
	WarningLogger = log.New(file, "WARNING: ", log.Ldate|log.Ltime)
	ErrorLogger = log.New(file, "ERROR: ", log.Ldate|log.Ltime|log.Lshortfile)
	OutputLogger = log.New(file, "", 0)
}

func printOutputDelimiter() {
	OutputLogger.Println(strings.Repeat("-", 70))
}

func readFileLines(fname string) ([]string, error) {
	file, err := os.Open(fname)
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var result []string
	scanner := bufio.NewScanner(file)
	for scanner.Scan() {
		result = append(result, scanner.Text())
	}
	return result, scanner.Err()
}

// runParams collects the keywords of one input file.
type runParams struct {
	reference df.Reference
	primary   []int
	auxCorr   []int
	auxRef    []int
	soDim     block.Dimension
	occA      block.Dimension
	virA      block.Dimension
	occB      block.Dimension
	virB      block.Dimension
	storeDir  string
	threads   int
	seed      int64
}

func parseInts(words []string) ([]int, error) {
	out := make([]int, 0, len(words))
	for _, w := range words {
		v, err := strconv.Atoi(w)
		if err != nil {
			return nil, err
		}
		out = append(out, v)
	}
	return out, nil
}

func processInput(data []string) runParams {
	params := runParams{reference: df.Restricted, threads: runtime.GOMAXPROCS(-1), seed: 1}
	for i := 0; i < len(data); i++ {
		words := strings.Fields(data[i])
		if len(words) < 2 {
			continue
		}
		key := strings.ToLower(words[0])
		values, err := parseInts(words[1:])
		if err != nil && key != "reference" && key != "storage" {
			ErrorLogger.Fatal("Parsing input. Bad values for keyword "+key+": ", err)
		}
		switch key {
		case "reference":
			switch strings.ToLower(words[1]) {
			case "restricted", "rhf":
				params.reference = df.Restricted
			case "unrestricted", "uhf":
				params.reference = df.Unrestricted
			default:
				ErrorLogger.Fatal("Parsing input. Unknown reference " + words[1] + ".")
			}
		case "primary":
			params.primary = values
		case "auxiliary":
			params.auxCorr = values
		case "jkfit":
			params.auxRef = values
		case "sodim":
			params.soDim = block.Dimension(values)
		case "occupied":
			params.occA = block.Dimension(values)
		case "virtual":
			params.virA = block.Dimension(values)
		case "occupied_beta":
			params.occB = block.Dimension(values)
		case "virtual_beta":
			params.virB = block.Dimension(values)
		case "storage":
			params.storeDir = words[1]
		case "nprocs":
			params.threads = values[0]
			runtime.GOMAXPROCS(params.threads)
			OutputLogger.Print("Parsing input. Number of threads set to " + words[1] + ".")
		case "seed":
			params.seed = int64(values[0])
		}
	}
	if len(params.primary) == 0 || len(params.auxCorr) == 0 || params.soDim == nil {
		ErrorLogger.Fatal("Parsing input. Keywords primary, auxiliary, and sodim are required.")
	}
	if len(params.auxRef) == 0 {
		OutputLogger.Println("Parsing input. No jkfit block. Reusing the correlation fitting set.")
		params.auxRef = params.auxCorr
	}
	if params.occA == nil || params.virA == nil {
		ErrorLogger.Fatal("Parsing input. Keywords occupied and virtual are required.")
	}
	if params.reference == df.Unrestricted && (params.occB == nil || params.virB == nil) {
		ErrorLogger.Fatal("Parsing input. Unrestricted runs need occupied_beta and virtual_beta.")
	}
	return params
}

// demoOrbitals draws a deterministic coefficient set over the symmetry
// orbitals. The driver exercises the pipeline on model integrals, so the
// orbitals only need the right shapes.
func demoOrbitals(rng *rand.Rand, soDim, occ, vir block.Dimension) df.Orbitals {
	mo := occ.Add(vir)
	all := block.NewBlocked("C", soDim, mo)
	for h := 0; h < soDim.Nirrep(); h++ {
		for i := 0; i < soDim[h]; i++ {
			for p := 0; p < mo[h]; p++ {
				all.Set(h, i, p, rng.Float64()-0.5)
			}
		}
	}
	o := block.NewBlocked("C occ", soDim, occ)
	v := block.NewBlocked("C vir", soDim, vir)
	for h := 0; h < soDim.Nirrep(); h++ {
		for i := 0; i < soDim[h]; i++ {
			for p := 0; p < occ[h]; p++ {
				o.Set(h, i, p, all.At(h, i, p))
			}
			for a := 0; a < vir[h]; a++ {
				v.Set(h, i, a, all.At(h, i, occ[h]+a))
			}
		}
	}
	return df.Orbitals{Occ: o, Vir: v, All: all}
}

func demoAOToSO(nao int, soDim block.Dimension) *block.Blocked {
	c := block.NewBlocked("AO->SO", block.Uniform(soDim.Nirrep(), nao), soDim)
	off := 0
	for h := 0; h < soDim.Nirrep(); h++ {
		for i := 0; i < soDim[h]; i++ {
			c.Set(h, off+i, i, 1.0)
		}
		off += soDim[h]
	}
	return c
}

func randomAmplitudes(file *dpd.File, name string, rows, cols *block.PairTable, rng *rand.Rand) error {
	buf, err := dpd.NewBuf4(file, name, rows, cols)
	if err != nil {
		return err
	}
	for h := 0; h < buf.Nirrep(); h++ {
		buf.IrrepInit(h)
		for i := 0; i < buf.RowDim(h); i++ {
			for j := 0; j < buf.ColDim(h); j++ {
				buf.Set(h, i, j, 0.1*(rng.Float64()-0.5))
			}
		}
		if err := buf.IrrepWrite(h); err != nil {
			return err
		}
		buf.IrrepClose(h)
	}
	return nil
}

func symmetricMatrix(rng *rand.Rand, name string, dim block.Dimension) *block.Blocked {
	m := block.NewBlocked(name, dim, dim)
	for h := 0; h < dim.Nirrep(); h++ {
		for i := 0; i < dim[h]; i++ {
			for j := 0; j <= i; j++ {
				v := 0.1 * (rng.Float64() - 0.5)
				m.Set(h, i, j, v)
				m.Set(h, j, i, v)
			}
		}
	}
	return m
}

func run(params runParams) error {
	var st store.Store
	if params.storeDir == "" {
		OutputLogger.Println("No storage keyword. Keeping tensors in memory.")
		st = store.NewMemory()
	} else {
		var err error
		if st, err = store.NewBadger(params.storeDir); err != nil {
			return err
		}
	}
	defer st.Close()

	primary, err := basis.New(params.primary...)
	if err != nil {
		return err
	}
	auxCorr, err := basis.New(params.auxCorr...)
	if err != nil {
		return err
	}
	auxRef, err := basis.New(params.auxRef...)
	if err != nil {
		return err
	}
	if params.soDim.Sum() != primary.NBF() {
		return fmt.Errorf("sodim sums to %d, primary carries %d functions",
			params.soDim.Sum(), primary.NBF())
	}

	rng := rand.New(rand.NewSource(params.seed))
	cfg := df.Config{
		Reference: params.reference,
		Primary:   primary,
		CorrInts:  eri.NewFittedModel(primary, auxCorr, params.seed),
		RefInts:   eri.NewFittedModel(primary, auxRef, params.seed+1),
		SODim:     params.soDim,
		AOToSO:    demoAOToSO(primary.NBF(), params.soDim),
		Alpha:     demoOrbitals(rng, params.soDim, params.occA, params.virA),
		Store:     st,
		Threads:   params.threads,
		Log:       InfoLogger,
	}
	if params.reference == df.Unrestricted {
		cfg.Beta = demoOrbitals(rng, params.soDim, params.occB, params.virB)
	}

	p, err := df.New(cfg)
	if err != nil {
		return err
	}

	start := time.Now()
	if err := p.BuildB(); err != nil {
		return err
	}
	OutputLogger.Println("Fitted tensors ready in ", time.Since(start))

	if err := p.TransformB(); err != nil {
		return err
	}
	if err := p.FormGTensors(); err != nil {
		return err
	}
	OutputLogger.Println("Four-index integrals assembled.")

	// Model amplitudes and densities stand in for a converged solver.
	if params.reference == df.Restricted {
		err = randomAmplitudes(p.File(), "Amplitude SF <OO|VV>",
			block.MustPairTable(params.occA, params.occA),
			block.MustPairTable(params.virA, params.virA), rng)
	} else {
		for _, c := range []struct {
			name       string
			ro, rv     block.Dimension
			co, cv     block.Dimension
		}{
			{"Amplitude <OO|VV>", params.occA, params.virA, params.occA, params.virA},
			{"Amplitude <oo|vv>", params.occB, params.virB, params.occB, params.virB},
			{"Amplitude <Oo|Vv>", params.occA, params.virA, params.occB, params.virB},
		} {
			if err = randomAmplitudes(p.File(), c.name,
				block.MustPairTable(c.ro, c.co),
				block.MustPairTable(c.rv, c.cv), rng); err != nil {
				break
			}
		}
	}
	if err != nil {
		return err
	}

	tauA := df.TauInput{
		Occ: symmetricMatrix(rng, "tau occ", params.occA),
		Vir: symmetricMatrix(rng, "tau vir", params.virA),
	}
	kappaA := symmetricMatrix(rng, "kappa", params.occA.Add(params.virA))
	tauB, kappaB := df.TauInput{}, (*block.Blocked)(nil)
	if params.reference == df.Unrestricted {
		tauB = df.TauInput{
			Occ: symmetricMatrix(rng, "tau occ beta", params.occB),
			Vir: symmetricMatrix(rng, "tau vir beta", params.virB),
		}
		kappaB = symmetricMatrix(rng, "kappa beta", params.occB.Add(params.virB))
	}
	if err := p.BuildTensors(tauA, tauB, kappaA, kappaB); err != nil {
		return err
	}
	OutputLogger.Println("[Gbar*Gamma] ready in ", time.Since(start))

	if err := p.ThreeIdxSeparableDensity(); err != nil {
		return err
	}
	if err := p.ConstructMetricDensity("Reference"); err != nil {
		return err
	}
	OutputLogger.Println("Reference density assembled.")

	printOutputDelimiter()
	OutputLogger.Println("Total wall time: ", time.Since(start))
	return nil
}

func main() {
	var inpFname, outFname string
	if len(os.Args) > 1 {
		inpFname = os.Args[1]
		split := strings.Split(inpFname, ".")
		fExt := split[len(split)-1]
		outFname = inpFname[0:len(inpFname)-len(fExt)] + "out"
		fmt.Println("Output file: ", outFname)
	} else {
		log.Fatal("No input file.")
	}

	initLog(outFname)

	InfoLogger.Println("Starting godct...")
	OutputLogger.Println("Input file content:")
	printOutputDelimiter()
	inpData, err := readFileLines(inpFname)
	if err != nil {
		ErrorLogger.Fatal("Cannot read input file: ", err)
	}
	for _, line := range inpData {
		OutputLogger.Println(line)
	}
	printOutputDelimiter()

	params := processInput(inpData)
	if err := run(params); err != nil {
		ErrorLogger.Println(err)
		fmt.Println("godct failed: ", err)
		os.Exit(1)
	}

	InfoLogger.Println("Exiting godct...")
	fmt.Println("godct done.")
}
