// Package ffmpeg implements the operation handlers executed by the worker
// pool.
//
// Every operation follows the same shape: probe the input for its total
// duration, build an ffmpeg argument list, run the process with
// `-progress pipe:1`, translate the line-oriented progress protocol into
// percentage updates on the job's progress sink, and map a non-zero exit
// code to a job failure. Progress is observational only; success and failure
// are decided solely by the process exit status.
package ffmpeg
