//go:build cgo

package gpuengine

/*
#cgo linux LDFLAGS: -lOpenCL
#cgo windows LDFLAGS: -lOpenCL
#cgo darwin LDFLAGS: -framework OpenCL

#ifdef __APPLE__
#include <OpenCL/cl.h>
#else
#include "clheaders/CL/cl.h"
#endif

#include <stdlib.h>
#include <string.h>
#include <stdio.h>

// The kernel implements the B2SHAConst/B2SHAState/B2SHABuffer contract:
// each work item owns one worker's block of `buf`, walks its assigned
// (atime, ctime) grid cell by cell in increasing order starting from
// aFirst/cFirst (incrementing the decimal digits ending at
// counterPos/ctimePos in place), computes SHA-1 and BLAKE2b-512 over the
// resulting bytes, and keeps the longest contiguous run shared between the
// two digests. Host-side reconstruction (aEnd(i) - matchCount) depends on
// this walking up from aFirst, not down from aEnd.
static const char* kernelSource =
"__constant uint SHA1_IV[5] = { 0x67452301, 0xEFCDAB89, 0x98BADCFE, 0x10325476, 0xC3D2E1F0 };\n"
"__constant ulong BLAKE2B_IV[8] = {\n"
"    0x6a09e667f3bcc908UL, 0xbb67ae8584caa73bUL, 0x3c6ef372fe94f82bUL, 0xa54ff53a5f1d36f1UL,\n"
"    0x510e527fade682d1UL, 0x9b05688c2b3e6c1fUL, 0x1f83d9abfb41bd6bUL, 0x5be0cd19137e2179UL\n"
"};\n"
"__constant uchar BLAKE2B_SIGMA[12][16] = {\n"
"    {0,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15},{14,10,4,8,9,15,13,6,1,12,0,2,11,7,5,3},\n"
"    {11,8,12,0,5,2,15,13,10,14,3,6,7,1,9,4},{7,9,3,1,13,12,11,14,2,6,5,10,4,0,15,8},\n"
"    {9,0,5,7,2,4,10,15,14,1,11,12,6,8,3,13},{2,12,6,10,0,11,8,3,4,13,7,5,15,14,1,9},\n"
"    {12,5,1,15,14,13,4,10,0,7,6,3,9,2,8,11},{13,11,7,14,12,1,3,9,5,0,15,4,8,6,2,10},\n"
"    {6,15,14,9,11,3,0,8,12,2,13,7,1,4,10,5},{10,2,8,4,7,6,1,5,15,11,9,14,3,12,13,0},\n"
"    {0,1,2,3,4,5,6,7,8,9,10,11,12,13,14,15},{14,10,4,8,9,15,13,6,1,12,0,2,11,7,5,3}\n"
"};\n"
"\n"
"uint rotr32(uint x, uint n) { return (x >> n) | (x << (32 - n)); }\n"
"uint rotl32(uint x, uint n) { return (x << n) | (x >> (32 - n)); }\n"
"ulong rotr64(ulong x, uint n) { return (x >> n) | (x << (64 - n)); }\n"
"\n"
"void sha1_compute(__private const uchar* msg, uint nblocks, uchar out[20]) {\n"
"    uint h0=SHA1_IV[0],h1=SHA1_IV[1],h2=SHA1_IV[2],h3=SHA1_IV[3],h4=SHA1_IV[4];\n"
"    for (uint b = 0; b < nblocks; b++) {\n"
"        uint w[80];\n"
"        uint base = b * 64;\n"
"        for (uint i = 0; i < 16; i++) {\n"
"            uint off = base + i * 4;\n"
"            w[i] = ((uint)msg[off]<<24)|((uint)msg[off+1]<<16)|((uint)msg[off+2]<<8)|(uint)msg[off+3];\n"
"        }\n"
"        for (uint i = 16; i < 80; i++) w[i] = rotl32(w[i-3]^w[i-8]^w[i-14]^w[i-16], 1);\n"
"        uint a=h0,bb=h1,c=h2,d=h3,e=h4;\n"
"        for (uint i = 0; i < 80; i++) {\n"
"            uint f,k;\n"
"            if (i<20){f=(bb&c)|((~bb)&d); k=0x5A827999;}\n"
"            else if (i<40){f=bb^c^d; k=0x6ED9EBA1;}\n"
"            else if (i<60){f=(bb&c)|(bb&d)|(c&d); k=0x8F1BBCDC;}\n"
"            else {f=bb^c^d; k=0xCA62C1D6;}\n"
"            uint temp = rotl32(a,5)+f+e+k+w[i];\n"
"            e=d; d=c; c=rotl32(bb,30); bb=a; a=temp;\n"
"        }\n"
"        h0+=a; h1+=bb; h2+=c; h3+=d; h4+=e;\n"
"    }\n"
"    out[0]=h0>>24; out[1]=h0>>16; out[2]=h0>>8; out[3]=h0;\n"
"    out[4]=h1>>24; out[5]=h1>>16; out[6]=h1>>8; out[7]=h1;\n"
"    out[8]=h2>>24; out[9]=h2>>16; out[10]=h2>>8; out[11]=h2;\n"
"    out[12]=h3>>24; out[13]=h3>>16; out[14]=h3>>8; out[15]=h3;\n"
"    out[16]=h4>>24; out[17]=h4>>16; out[18]=h4>>8; out[19]=h4;\n"
"}\n"
"\n"
"void blake2b_g(ulong v[16], uint a, uint b, uint c, uint d, ulong x, ulong y) {\n"
"    v[a]=v[a]+v[b]+x; v[d]=rotr64(v[d]^v[a],32);\n"
"    v[c]=v[c]+v[d]; v[b]=rotr64(v[b]^v[c],24);\n"
"    v[a]=v[a]+v[b]+y; v[d]=rotr64(v[d]^v[a],16);\n"
"    v[c]=v[c]+v[d]; v[b]=rotr64(v[b]^v[c],63);\n"
"}\n"
"\n"
"void blake2b_compress(ulong h[8], __private const ulong m[16], ulong t, int last) {\n"
"    ulong v[16];\n"
"    for (int i=0;i<8;i++) v[i]=h[i];\n"
"    for (int i=0;i<8;i++) v[8+i]=BLAKE2B_IV[i];\n"
"    v[12]^=t; v[14]^= last ? 0xFFFFFFFFFFFFFFFFUL : 0UL;\n"
"    for (int r=0;r<12;r++) {\n"
"        __constant uchar* s = BLAKE2B_SIGMA[r];\n"
"        blake2b_g(v,0,4,8,12,m[s[0]],m[s[1]]);\n"
"        blake2b_g(v,1,5,9,13,m[s[2]],m[s[3]]);\n"
"        blake2b_g(v,2,6,10,14,m[s[4]],m[s[5]]);\n"
"        blake2b_g(v,3,7,11,15,m[s[6]],m[s[7]]);\n"
"        blake2b_g(v,0,5,10,15,m[s[8]],m[s[9]]);\n"
"        blake2b_g(v,1,6,11,12,m[s[10]],m[s[11]]);\n"
"        blake2b_g(v,2,7,8,13,m[s[12]],m[s[13]]);\n"
"        blake2b_g(v,3,4,9,14,m[s[14]],m[s[15]]);\n"
"    }\n"
"    for (int i=0;i<8;i++) h[i]^=v[i]^v[8+i];\n"
"}\n"
"\n"
"void blake2b_compute(__private const uchar* msg, uint length, uchar out[64]) {\n"
"    ulong h[8];\n"
"    for (int i=0;i<8;i++) h[i]=BLAKE2B_IV[i];\n"
"    h[0]^=0x01010040UL; // param block: digest length 64, no key\n"
"    ulong t=0;\n"
"    uint off=0;\n"
"    while (length - off > 128) {\n"
"        ulong m[16];\n"
"        for (int i=0;i<16;i++){\n"
"            ulong w=0;\n"
"            for (int b=0;b<8;b++) w |= ((ulong)msg[off+i*8+b])<<(8*b);\n"
"            m[i]=w;\n"
"        }\n"
"        t+=128;\n"
"        blake2b_compress(h, m, t, 0);\n"
"        off+=128;\n"
"    }\n"
"    uchar last[128];\n"
"    for (int i=0;i<128;i++) last[i]=0;\n"
"    uint remain=length-off;\n"
"    for (uint i=0;i<remain;i++) last[i]=msg[off+i];\n"
"    t+=remain;\n"
"    ulong m[16];\n"
"    for (int i=0;i<16;i++){\n"
"        ulong w=0;\n"
"        for (int b=0;b<8;b++) w |= ((ulong)last[i*8+b])<<(8*b);\n"
"        m[i]=w;\n"
"    }\n"
"    blake2b_compress(h, m, t, 1);\n"
"    for (int i=0;i<8;i++){\n"
"        for (int b=0;b<8;b++) out[i*8+b]=(uchar)(h[i]>>(8*b));\n"
"    }\n"
"}\n"
"\n"
"uint longest_common_run(__private const uchar* needle, uint needleLen, __private const uchar* hay, uint hayLen, uint* offset) {\n"
"    uint best=0; *offset=0;\n"
"    if (needleLen==0) return 0;\n"
"    for (uint i=0;i<hayLen;i++) {\n"
"        if (hay[i]!=needle[0]) continue;\n"
"        uint maxn = (needleLen < hayLen-i) ? needleLen : hayLen-i;\n"
"        uint n=0;\n"
"        while (n<maxn && needle[n]==hay[i+n]) n++;\n"
"        if (n>best) { best=n; *offset=i; }\n"
"    }\n"
"    return best;\n"
"}\n"
"\n"
"void inc_digit_at(__private uchar* buf, uint pos) {\n"
"    // Carry-propagating decimal increment ending at byte offset pos.\n"
"    int i = (int)pos;\n"
"    while (i >= 0) {\n"
"        if (buf[i] == '9') { buf[i] = '0'; i--; continue; }\n"
"        buf[i] = buf[i] + 1;\n"
"        return;\n"
"    }\n"
"}\n"
"\n"
"__kernel void mine(\n"
"    const uint length,\n"
"    const uint nblocks,\n"
"    __global const uchar* buf,\n"
"    __global const int* counterPos,\n"
"    __global const int* ctimePos,\n"
"    __global const ulong* counts,\n"
"    __global const ulong* ctimeCount,\n"
"    __global uchar* outSha1,\n"
"    __global int* outMatchLen,\n"
"    __global ulong* outMatchCount,\n"
"    __global ulong* outMatchCtimeCount\n"
") {\n"
"    uint gid = get_global_id(0);\n"
"    uchar scratch[512];\n"
"    uint paddedLen = nblocks*64;\n"
"    for (uint i=0;i<paddedLen && i<512;i++) scratch[i]=buf[gid*paddedLen+i];\n"
"\n"
"    int bestLen=0; ulong bestMatchCount=0; ulong bestMatchCtimeCount=0;\n"
"    ulong cc = ctimeCount[gid];\n"
"    ulong ac = counts[gid];\n"
"    for (ulong cstep=0; cstep<cc; cstep++) {\n"
"        for (ulong astep=0; astep<ac; astep++) {\n"
"            if (astep>0) inc_digit_at(scratch, (uint)counterPos[gid]);\n"
"            uchar sha[20]; uchar b2[64];\n"
"            sha1_compute(scratch, nblocks, sha);\n"
"            blake2b_compute(scratch, length, b2);\n"
"            uint offset=0;\n"
"            uint n = longest_common_run(sha, 20, b2, 64, &offset);\n"
"            if ((int)n > bestLen) { bestLen=(int)n; bestMatchCount=ac-astep; bestMatchCtimeCount=cc-cstep; }\n"
"        }\n"
"        if (cstep+1<cc) inc_digit_at(scratch, (uint)ctimePos[gid]);\n"
"    }\n"
"\n"
"    uchar finalSha[20];\n"
"    sha1_compute(scratch, nblocks, finalSha);\n"
"    for (uint i=0;i<20;i++) outSha1[gid*20+i]=finalSha[i];\n"
"    outMatchLen[gid]=bestLen;\n"
"    outMatchCount[gid]=bestMatchCount;\n"
"    outMatchCtimeCount[gid]=bestMatchCtimeCount;\n"
"}\n";

typedef struct {
    cl_context context;
    cl_command_queue queue;
    cl_program program;
    cl_kernel kernel;
    cl_device_id device;
} clDevice;

static cl_device_id* g_devices = NULL;
static int g_deviceCount = 0;
static int g_initialized = 0;

static void ensureInit(void) {
    if (g_initialized) return;
    g_initialized = 1;

    cl_uint numPlatforms = 0;
    clGetPlatformIDs(0, NULL, &numPlatforms);
    if (numPlatforms == 0) return;

    cl_platform_id* platforms = (cl_platform_id*)malloc(sizeof(cl_platform_id) * numPlatforms);
    clGetPlatformIDs(numPlatforms, platforms, NULL);

    int total = 0;
    for (cl_uint p = 0; p < numPlatforms; p++) {
        cl_uint nd = 0;
        clGetDeviceIDs(platforms[p], CL_DEVICE_TYPE_ALL, 0, NULL, &nd);
        total += nd;
    }
    if (total == 0) { free(platforms); return; }

    g_devices = (cl_device_id*)malloc(sizeof(cl_device_id) * total);
    int idx = 0;
    for (cl_uint p = 0; p < numPlatforms; p++) {
        cl_uint nd = 0;
        clGetDeviceIDs(platforms[p], CL_DEVICE_TYPE_ALL, 0, NULL, &nd);
        if (nd > 0) {
            clGetDeviceIDs(platforms[p], CL_DEVICE_TYPE_ALL, nd, g_devices + idx, NULL);
            idx += nd;
        }
    }
    g_deviceCount = idx;
    free(platforms);
}

int gm_deviceCount(void) { ensureInit(); return g_deviceCount; }

char* gm_deviceName(int index) {
    ensureInit();
    if (index < 0 || index >= g_deviceCount) return strdup("Unknown");
    char name[256];
    clGetDeviceInfo(g_devices[index], CL_DEVICE_NAME, sizeof(name), name, NULL);
    return strdup(name);
}

char* gm_deviceVendor(int index) {
    ensureInit();
    if (index < 0 || index >= g_deviceCount) return strdup("Unknown");
    char vendor[256];
    clGetDeviceInfo(g_devices[index], CL_DEVICE_VENDOR, sizeof(vendor), vendor, NULL);
    return strdup(vendor);
}

int gm_deviceMaxCU(int index) {
    ensureInit();
    if (index < 0 || index >= g_deviceCount) return 0;
    cl_uint cu = 0;
    clGetDeviceInfo(g_devices[index], CL_DEVICE_MAX_COMPUTE_UNITS, sizeof(cu), &cu, NULL);
    return (int)cu;
}

void* gm_open(int index) {
    ensureInit();
    if (index < 0 || index >= g_deviceCount) return NULL;

    cl_device_id dev = g_devices[index];
    cl_int err;

    cl_context ctx = clCreateContext(NULL, 1, &dev, NULL, NULL, &err);
    if (err != CL_SUCCESS) return NULL;

    cl_command_queue_properties props = CL_QUEUE_PROFILING_ENABLE;
    cl_command_queue queue = clCreateCommandQueue(ctx, dev, props, &err);
    if (err != CL_SUCCESS) { clReleaseContext(ctx); return NULL; }

    const char* src = kernelSource;
    size_t srcLen = strlen(kernelSource);
    cl_program prog = clCreateProgramWithSource(ctx, 1, &src, &srcLen, &err);
    if (err != CL_SUCCESS) { clReleaseCommandQueue(queue); clReleaseContext(ctx); return NULL; }

    err = clBuildProgram(prog, 1, &dev, NULL, NULL, NULL);
    if (err != CL_SUCCESS) {
        char log[4096];
        clGetProgramBuildInfo(prog, dev, CL_PROGRAM_BUILD_LOG, sizeof(log), log, NULL);
        fprintf(stderr, "OpenCL build error: %s\n", log);
        clReleaseProgram(prog);
        clReleaseCommandQueue(queue);
        clReleaseContext(ctx);
        return NULL;
    }

    cl_kernel kern = clCreateKernel(prog, "mine", &err);
    if (err != CL_SUCCESS) {
        clReleaseProgram(prog);
        clReleaseCommandQueue(queue);
        clReleaseContext(ctx);
        return NULL;
    }

    clDevice* d = (clDevice*)calloc(1, sizeof(clDevice));
    d->context = ctx; d->queue = queue; d->program = prog; d->kernel = kern; d->device = dev;
    return d;
}

void gm_close(void* handle) {
    clDevice* d = (clDevice*)handle;
    if (!d) return;
    clReleaseKernel(d->kernel);
    clReleaseProgram(d->program);
    clReleaseCommandQueue(d->queue);
    clReleaseContext(d->context);
    free(d);
}

// gm_run dispatches one batch and blocks until it completes, then fills the
// four output arrays and reports the event's queued->end duration in
// nanoseconds via *nanos. openclDevice.Enqueue calls it directly on the
// caller's goroutine, so a batch has finished before Enqueue returns and the
// pipeline builds the following batch only after that.
int gm_run(void* handle, int n, int nblocks, int length,
           const unsigned char* buf, int bufLen,
           const int* counterPos, const int* ctimePos,
           const unsigned long* counts, const unsigned long* ctimeCount,
           unsigned char* outSha1, int* outLen, unsigned long* outCount, unsigned long* outCtCount,
           long long* nanos) {
    clDevice* d = (clDevice*)handle;
    if (!d) return -1;
    cl_int err;

    cl_mem bufMem = clCreateBuffer(d->context, CL_MEM_READ_ONLY | CL_MEM_COPY_HOST_PTR, bufLen, (void*)buf, &err);
    cl_mem counterPosMem = clCreateBuffer(d->context, CL_MEM_READ_ONLY | CL_MEM_COPY_HOST_PTR, n*sizeof(int), (void*)counterPos, &err);
    cl_mem ctimePosMem = clCreateBuffer(d->context, CL_MEM_READ_ONLY | CL_MEM_COPY_HOST_PTR, n*sizeof(int), (void*)ctimePos, &err);
    cl_mem countsMem = clCreateBuffer(d->context, CL_MEM_READ_ONLY | CL_MEM_COPY_HOST_PTR, n*sizeof(cl_ulong), (void*)counts, &err);
    cl_mem ctimeCountMem = clCreateBuffer(d->context, CL_MEM_READ_ONLY | CL_MEM_COPY_HOST_PTR, n*sizeof(cl_ulong), (void*)ctimeCount, &err);
    cl_mem outShaMem = clCreateBuffer(d->context, CL_MEM_WRITE_ONLY, n*20, NULL, &err);
    cl_mem outLenMem = clCreateBuffer(d->context, CL_MEM_WRITE_ONLY, n*sizeof(int), NULL, &err);
    cl_mem outCountMem = clCreateBuffer(d->context, CL_MEM_WRITE_ONLY, n*sizeof(cl_ulong), NULL, &err);
    cl_mem outCtCountMem = clCreateBuffer(d->context, CL_MEM_WRITE_ONLY, n*sizeof(cl_ulong), NULL, &err);

    cl_uint ulen = (cl_uint)length, ublocks = (cl_uint)nblocks;
    clSetKernelArg(d->kernel, 0, sizeof(cl_uint), &ulen);
    clSetKernelArg(d->kernel, 1, sizeof(cl_uint), &ublocks);
    clSetKernelArg(d->kernel, 2, sizeof(cl_mem), &bufMem);
    clSetKernelArg(d->kernel, 3, sizeof(cl_mem), &counterPosMem);
    clSetKernelArg(d->kernel, 4, sizeof(cl_mem), &ctimePosMem);
    clSetKernelArg(d->kernel, 5, sizeof(cl_mem), &countsMem);
    clSetKernelArg(d->kernel, 6, sizeof(cl_mem), &ctimeCountMem);
    clSetKernelArg(d->kernel, 7, sizeof(cl_mem), &outShaMem);
    clSetKernelArg(d->kernel, 8, sizeof(cl_mem), &outLenMem);
    clSetKernelArg(d->kernel, 9, sizeof(cl_mem), &outCountMem);
    clSetKernelArg(d->kernel, 10, sizeof(cl_mem), &outCtCountMem);

    size_t globalSize = (size_t)n;
    cl_event kernelEvent;
    err = clEnqueueNDRangeKernel(d->queue, d->kernel, 1, NULL, &globalSize, NULL, 0, NULL, &kernelEvent);
    if (err == CL_SUCCESS) {
        clWaitForEvents(1, &kernelEvent);
        clEnqueueReadBuffer(d->queue, outShaMem, CL_TRUE, 0, n*20, outSha1, 0, NULL, NULL);
        clEnqueueReadBuffer(d->queue, outLenMem, CL_TRUE, 0, n*sizeof(int), outLen, 0, NULL, NULL);
        clEnqueueReadBuffer(d->queue, outCountMem, CL_TRUE, 0, n*sizeof(cl_ulong), outCount, 0, NULL, NULL);
        clEnqueueReadBuffer(d->queue, outCtCountMem, CL_TRUE, 0, n*sizeof(cl_ulong), outCtCount, 0, NULL, NULL);

        cl_ulong queued=0, ended=0;
        clGetEventProfilingInfo(kernelEvent, CL_PROFILING_COMMAND_QUEUED, sizeof(queued), &queued, NULL);
        clGetEventProfilingInfo(kernelEvent, CL_PROFILING_COMMAND_END, sizeof(ended), &ended, NULL);
        *nanos = (long long)(ended - queued);
        clReleaseEvent(kernelEvent);
    }

    clReleaseMemObject(bufMem);
    clReleaseMemObject(counterPosMem);
    clReleaseMemObject(ctimePosMem);
    clReleaseMemObject(countsMem);
    clReleaseMemObject(ctimeCountMem);
    clReleaseMemObject(outShaMem);
    clReleaseMemObject(outLenMem);
    clReleaseMemObject(outCountMem);
    clReleaseMemObject(outCtCountMem);

    return err == CL_SUCCESS ? 0 : -1;
}
*/
import "C"

import (
	"fmt"
	"time"
	"unsafe"

	"github.com/vanity-tools/gitmine/internal/digest"
)

// ListDevices enumerates every OpenCL device visible to the ICD loader.
func ListDevices() ([]DeviceInfo, error) {
	count := int(C.gm_deviceCount())
	infos := make([]DeviceInfo, count)
	for i := 0; i < count; i++ {
		name := C.gm_deviceName(C.int(i))
		vendor := C.gm_deviceVendor(C.int(i))
		infos[i] = DeviceInfo{
			Index:           i,
			Name:            C.GoString(name),
			Vendor:          C.GoString(vendor),
			MaxComputeUnits: int(C.gm_deviceMaxCU(C.int(i))),
		}
		C.free(unsafe.Pointer(name))
		C.free(unsafe.Pointer(vendor))
	}
	return infos, nil
}

// OpenDevice compiles the mining kernel against the numbered device.
func OpenDevice(index int) (Device, error) {
	handle := C.gm_open(C.int(index))
	if handle == nil {
		return nil, fmt.Errorf("gpuengine: failed to open OpenCL device %d", index)
	}
	return &openclDevice{
		handle: handle,
		maxCU:  int(C.gm_deviceMaxCU(C.int(index))),
	}, nil
}

type openclDevice struct {
	handle unsafe.Pointer
	maxCU  int
}

func (d *openclDevice) MaxComputeUnits() int { return d.maxCU }

// clPending is what Enqueue hands back: the batch has already run by the
// time Wait is called (see the comment on gm_run), so this just carries the
// already-computed result and its profiled duration.
type clPending struct {
	states []WorkerState
	nanos  int64
}

func (d *openclDevice) Enqueue(b Batch) (Handle, error) {
	n := len(b.State)
	if n == 0 {
		return nil, fmt.Errorf("gpuengine: Enqueue called with zero workers")
	}
	nblocks := len(b.Buf) / n / blockSize

	counterPos := make([]C.int, n)
	ctimePos := make([]C.int, n)
	counts := make([]C.ulong, n)
	ctimeCounts := make([]C.ulong, n)
	for i, st := range b.State {
		counterPos[i] = C.int(st.CounterPos)
		ctimePos[i] = C.int(st.CtimePos)
		counts[i] = C.ulong(st.Counts)
		ctimeCounts[i] = C.ulong(st.CtimeCount)
	}

	outSha1 := make([]byte, n*digest.SHA1Size)
	outLen := make([]C.int, n)
	outCount := make([]C.ulong, n)
	outCtCount := make([]C.ulong, n)
	var nanos C.longlong

	rc := C.gm_run(
		d.handle,
		C.int(n), C.int(nblocks), C.int(b.Fixed.TotalLength),
		(*C.uchar)(unsafe.Pointer(&b.Buf[0])), C.int(len(b.Buf)),
		&counterPos[0], &ctimePos[0], &counts[0], &ctimeCounts[0],
		(*C.uchar)(unsafe.Pointer(&outSha1[0])), &outLen[0], &outCount[0], &outCtCount[0],
		&nanos,
	)
	if rc != 0 {
		return nil, fmt.Errorf("gpuengine: kernel dispatch failed")
	}

	states := make([]WorkerState, n)
	for i := range states {
		copy(states[i].Sha1[:], outSha1[i*digest.SHA1Size:(i+1)*digest.SHA1Size])
		states[i].MatchLen = int(outLen[i])
		states[i].MatchCount = int64(outCount[i])
		states[i].MatchCtimeCount = int64(outCtCount[i])
	}

	return &clPending{states: states, nanos: int64(nanos)}, nil
}

func (d *openclDevice) Wait(h Handle) (BatchResult, error) {
	p, ok := h.(*clPending)
	if !ok {
		return BatchResult{}, fmt.Errorf("gpuengine: Wait called with a handle from a different device")
	}
	elapsed := time.Duration(p.nanos)
	return BatchResult{State: p.states, SubmitTime: elapsed, ExecTime: elapsed}, nil
}

func (d *openclDevice) Close() {
	if d.handle != nil {
		C.gm_close(d.handle)
		d.handle = nil
	}
}
